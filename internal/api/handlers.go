package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/activity"
	"github.com/spigell/broker-genie/internal/ai"
	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/intake"
	"github.com/spigell/broker-genie/internal/plans"
)

type plansResponse struct {
	Plans      []*plans.Plan `json:"plans"`
	Categories []string      `json:"categories"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	view, ok := viewFromQuery(w, r)
	if !ok {
		return
	}

	listed, err := s.intake.Browse(r.Context(), view)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, plansResponse{Plans: nonNil(listed.Items), Categories: nonNil(listed.Categories())})
}

func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	sub, view, ok := s.readSubmission(w, r)
	if !ok {
		return
	}

	res, err := s.intake.Match(r.Context(), userID(r.Context()), sub, view)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res.Plans = nonNil(res.Plans)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	sub, view, ok := s.readSubmission(w, r)
	if !ok {
		return
	}

	res, err := s.intake.Submit(r.Context(), userID(r.Context()), sub, view)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res.Plans = nonNil(res.Plans)
	status := http.StatusCreated
	if !res.Saved {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	list, err := s.clients.List(r.Context(), userID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	c, err := s.clients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, ai.ErrEmptyQuestion.Error())
		return
	}

	ctx := r.Context()
	if user := userID(ctx); user != "" && s.activity != nil {
		entry := activity.NewEntry(user, activity.TypeAIChat, map[string]any{"message_length": len(req.Message)})
		if err := s.activity.Record(ctx, entry); err != nil {
			requestLogger(r, s.logger).Warn("recording activity", zap.Error(err))
		}
	}

	kb, err := ai.LoadKnowledgeBase(ctx, s.catalog)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	answer, err := s.assistant.Answer(ctx, req.Message, kb)
	if err != nil {
		requestLogger(r, s.logger).Error("assistant failed", zap.String("assistant", s.assistant.Name()), zap.Error(err))
		answer = ai.ErrorReply
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: answer})
}

func (s *Server) timeSaved(w http.ResponseWriter, r *http.Request) {
	user := userID(r.Context())
	if user == "" {
		badRequest(w, userIDHeader+" header is required")
		return
	}

	entries, err := s.activity.List(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activity.Summarize(entries))
}

// readSubmission decodes an intake form body and the view query parameters.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (*clients.Submission, intake.View, bool) {
	view, ok := viewFromQuery(w, r)
	if !ok {
		return nil, view, false
	}

	var raw map[string]any
	if !decode(w, r, &raw) {
		return nil, view, false
	}

	sub, err := clients.DecodeSubmission(raw)
	if err != nil {
		badRequest(w, err.Error())
		return nil, view, false
	}
	return sub, view, true
}

func viewFromQuery(w http.ResponseWriter, r *http.Request) (intake.View, bool) {
	q := r.URL.Query()
	view := intake.View{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}

	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
	case "desc":
		view.Desc = true
	default:
		badRequest(w, "order must be asc or desc")
		return view, false
	}
	return view, true
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, clients.ErrInvalidSubmission),
		errors.Is(err, clients.ErrDuplicateSpouse),
		errors.Is(err, intake.ErrInvalidView):
		badRequest(w, err.Error())
	case errors.Is(err, clients.ErrNotFound):
		notFound(w, err.Error())
	default:
		internalError(w, r, s.logger, err)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
