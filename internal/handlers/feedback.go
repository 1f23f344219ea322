package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/petermazzocco/beauty-advisor/internal/feedback"
)

type feedbackRequest struct {
	FeedbackText *string         `json:"feedback_text"`
	Rating       json.RawMessage `json:"rating"`
}

func SubmitFeedbackHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	recID, err := pathID(r, "recommendationId")
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	fb, created, err := env.Feedback.Submit(r.Context(), userID, recID, req.FeedbackText, feedback.ParseRating(req.Rating))
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	status, message := http.StatusOK, "Feedback updated successfully"
	if created {
		status, message = http.StatusCreated, "Feedback submitted successfully"
	}
	env.Respond.JSON(w, status, map[string]any{
		"message":  message,
		"feedback": fb,
	})
}

func GetFeedbackForUserHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	items, err := env.Feedback.ListForUser(r.Context(), userID)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.JSON(w, http.StatusOK, items)
}

func GetFeedbackForRecommendationHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	recID, err := pathID(r, "recommendationId")
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	fb, err := env.Feedback.GetForRecommendation(r.Context(), userID, recID)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.JSON(w, http.StatusOK, fb)
}

func DeleteFeedbackHandler(w http.ResponseWriter, r *http.Request, env *Env) {
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

	if err := env.Feedback.Delete(r.Context(), userID, id); err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.Message(w, http.StatusOK, "Feedback deleted successfully")
}
