package handlers

import (
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/photos"
)

// multipartSlack covers the multipart framing around the file itself.
const multipartSlack = 1 << 20

func UploadImageHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	maxBytes := env.Photos.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)

	// Parse multipart form
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			env.Respond.Error(w, r, apperr.Validation("File too large"))
			return
		}
		env.Respond.Error(w, r, &apperr.Error{Kind: apperr.KindValidation, Message: "No image file provided", Err: err})
		return
	}
	defer file.Close()

	// One byte past the limit is enough to reject the file.
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		env.Respond.Error(w, r, errors.Wrap(err, "read upload"))
		return
	}

	photo, err := env.Photos.Upload(r.Context(), userID, &photos.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	})
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	env.Respond.JSON(w, http.StatusCreated, map[string]any{
		"message": "Image uploaded successfully",
		"photo":   photo,
	})
}

func GetImagesForUserHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	list, err := env.Photos.List(r.Context(), userID)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.JSON(w, http.StatusOK, list)
}

func GetImageByIDHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	photo, err := env.Photos.Get(r.Context(), userID, id)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.JSON(w, http.StatusOK, photo)
}

func DeleteImageHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	if err := env.Photos.Delete(r.Context(), userID, id); err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.Message(w, http.StatusOK, "Image deleted successfully")
}
