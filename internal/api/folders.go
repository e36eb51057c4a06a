package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListFolders handles GET /folders.
//
//	@Summary		List every folder visible to the account
//	@Tags			folders
//	@Produce		json
//	@Success		200	{object}	FolderListResponse
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.VisibleFolders(r.Context(), currentUser(r).ID)
	if err != nil {
		writeErr(w, "list folders", err)
		return
	}
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: nonNilFolders(folders)})
}

// CreateFolder handles POST /folders.
//
//	@Summary		Create a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFolderRequest	true	"Folder to create"
//	@Success		201		{object}	models.Folder
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decode(w, r, &req) {
		return
	}
	folder, err := h.svc.CreateFolder(r.Context(), currentUser(r).ID, req.Name, req.Description)
	if err != nil {
		writeErr(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// UpdateFolder handles PATCH /folders/{id}. Only the owner may rename.
//
//	@Summary		Replace a folder's name and description
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Folder id"
//	@Param			body	body		UpdateFolderRequest	true	"New text fields"
//	@Success		200		{object}	models.Folder
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id} [patch]
func (h *Handler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	var req UpdateFolderRequest
	if !decode(w, r, &req) {
		return
	}
	folder, err := h.svc.UpdateFolder(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		writeErr(w, "update folder", err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// ShareFolder handles POST /folders/{id}/share. The grant cascades to
// every todo in the folder, replacing their previous sharing state.
//
//	@Summary		Grant another account access to a folder and its todos
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Folder id"
//	@Param			body	body		ShareFolderRequest	true	"Grantee and permission"
//	@Success		200		{object}	models.Folder
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id}/share [post]
func (h *Handler) ShareFolder(w http.ResponseWriter, r *http.Request) {
	var req ShareFolderRequest
	if !decode(w, r, &req) {
		return
	}
	folder, err := h.svc.ShareFolder(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), req.Email, req.Permission)
	if err != nil {
		writeErr(w, "share folder", err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// DeleteFolder handles DELETE /folders/{id}. Member todos survive and
// move back to the root list.
//
//	@Summary	Delete a folder, detaching its todos
//	@Tags		folders
//	@Param		id	path	string	true	"Folder id"
//	@Success	204	"Folder deleted"
//	@Failure	403	{object}	errResponse
//	@Failure	404	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/folders/{id} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFolder(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		writeErr(w, "delete folder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
