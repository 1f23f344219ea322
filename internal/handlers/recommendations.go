package handlers

import (
	"net/http"
)

type generateRequest struct {
	EventType string `json:"event_type"`
}

func GenerateRecommendationHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	photoID, err := pathID(r, "photoId")
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	rec, err := env.Recommendations.Generate(r.Context(), userID, photoID, req.EventType)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.JSON(w, http.StatusCreated, map[string]any{
		"message":        "Recommendation generated successfully",
		"recommendation": rec,
	})
}

func GetRecommendationsForUserHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	recs, err := env.Recommendations.ListForUser(r.Context(), userID)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.JSON(w, http.StatusOK, recs)
}

func GetRecommendationByIDHandler(w http.ResponseWriter, r *http.Request, env *Env) {
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

	rec, err := env.Recommendations.Get(r.Context(), userID, id)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.JSON(w, http.StatusOK, rec)
}

func DeleteRecommendationHandler(w http.ResponseWriter, r *http.Request, env *Env) {
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

	if err := env.Recommendations.Delete(r.Context(), userID, id); err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.Message(w, http.StatusOK, "Recommendation deleted successfully")
}
