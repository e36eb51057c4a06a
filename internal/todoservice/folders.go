package todoservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/feed"
	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/perm"
)

// FoldersOwnedBy returns the folders the user owns.
func (s *Service) FoldersOwnedBy(ctx context.Context, userID string) ([]models.Folder, error) {
	return s.db.FoldersOwnedBy(ctx, userID)
}

// FoldersSharedWith returns the folders shared with the user.
func (s *Service) FoldersSharedWith(ctx context.Context, userID string) ([]models.Folder, error) {
	return s.db.FoldersSharedWith(ctx, userID)
}

// VisibleFolders returns owned and shared folders merged, deduplicated by id
// with the owned copy winning.
func (s *Service) VisibleFolders(ctx context.Context, userID string) ([]models.Folder, error) {
	owned, err := s.db.FoldersOwnedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := s.db.FoldersSharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.MergeFolders(owned, shared), nil
}

// GetFolder returns one folder if the user may see it.
func (s *Service) GetFolder(ctx context.Context, userID, id string) (models.Folder, error) {
	f, err := s.db.GetFolder(ctx, id)
	if err != nil {
		return models.Folder{}, err
	}
	if !perm.Resolve(f.OwnerID, f.SharedWith, f.CanEdit, userID).CanView() {
		return models.Folder{}, apperr.ErrNotFound
	}
	return f, nil
}

// CreateFolder creates a folder owned by the user. New folders start
// unshared.
func (s *Service) CreateFolder(ctx context.Context, userID, name, description string) (models.Folder, error) {
	if strings.TrimSpace(name) == "" {
		return models.Folder{}, errEmptyName
	}
	f := models.Folder{
		ID:          models.NewID(),
		CreatedAt:   time.Now().UTC(),
		Name:        name,
		Description: description,
		OwnerID:     userID,
		SharedWith:  []string{},
		CanEdit:     []string{},
	}
	if err := s.db.InsertFolder(ctx, f); err != nil {
		return models.Folder{}, err
	}
	s.hub.Publish(feed.FolderInserted(f))
	return f, nil
}

// UpdateFolder sets name and description on a folder the user owns.
func (s *Service) UpdateFolder(ctx context.Context, userID, id, name, description string) (models.Folder, error) {
	if strings.TrimSpace(name) == "" {
		return models.Folder{}, errEmptyName
	}
	f, err := s.ownedFolder(ctx, userID, id)
	if err != nil {
		return models.Folder{}, err
	}
	if err := s.db.UpdateFolderFields(ctx, id, name, description); err != nil {
		return models.Folder{}, err
	}
	f.Name, f.Description = name, description
	s.hub.Publish(feed.FolderUpdated(f))
	return f, nil
}

// ShareFolder grants a user, looked up by email, access to a folder the
// caller owns. The folder's updated sharing sets are stamped onto every
// member todo in the same transaction, so access cascades atomically.
func (s *Service) ShareFolder(ctx context.Context, userID, folderID, email, grant string) (models.Folder, error) {
	if _, err := s.ownedFolder(ctx, userID, folderID); err != nil {
		return models.Folder{}, err
	}
	if !perm.ValidGrant(grant) {
		return models.Folder{}, fmt.Errorf("unknown permission %q", grant)
	}
	grantee, _, err := s.db.UserByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return models.Folder{}, err
	}

	f, members, err := s.db.ShareFolder(ctx, folderID, grantee.ID, perm.GrantsEdit(grant))
	if err != nil {
		return models.Folder{}, err
	}
	s.hub.Publish(feed.FolderUpdated(f))
	for _, t := range members {
		s.hub.Publish(feed.TodoUpdated(t))
	}
	return f, nil
}

// DeleteFolder removes a folder the user owns. Member todos are detached to
// the root list, keeping their sharing sets; their update events go out
// before the folder's delete event.
func (s *Service) DeleteFolder(ctx context.Context, userID, id string) error {
	if _, err := s.ownedFolder(ctx, userID, id); err != nil {
		return err
	}
	f, detached, err := s.db.DeleteFolder(ctx, id)
	if err != nil {
		return err
	}
	for _, t := range detached {
		s.hub.Publish(feed.TodoUpdated(t))
	}
	s.hub.Publish(feed.FolderDeleted(f))
	return nil
}

// ownedFolder loads a folder and enforces ownership: invisible rows read as
// not found, visible but non-owned rows as forbidden.
func (s *Service) ownedFolder(ctx context.Context, userID, id string) (models.Folder, error) {
	f, err := s.db.GetFolder(ctx, id)
	if err != nil {
		return models.Folder{}, err
	}
	switch lvl := perm.Resolve(f.OwnerID, f.SharedWith, f.CanEdit, userID); {
	case lvl == perm.None:
		return models.Folder{}, apperr.ErrNotFound
	case lvl != perm.Owner:
		return models.Folder{}, apperr.ErrForbidden
	}
	return f, nil
}
