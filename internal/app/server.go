package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/speaklab/speaklab/internal/content"
	"github.com/speaklab/speaklab/internal/observe"
)

// articleSummary is the list-view representation of an article.
type articleSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// articleDetail is the full representation of an article, including the
// derived sentence list and vocabulary phrases.
type articleDetail struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Sentences []string `json:"sentences"`
	Phrases   []string `json:"phrases,omitempty"`
}

// selectRequest is the body of POST /api/practice.
type selectRequest struct {
	ArticleID int64 `json:"article_id"`
	Sentence  int   `json:"sentence"`
}

// routes assembles the HTTP handler tree: the practice API, the microphone
// WebSocket endpoint (when the configured microphone needs one), health
// probes, and the Prometheus scrape endpoint. All routes run through the
// observability middleware.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/articles", a.handleListArticles)
	mux.HandleFunc("GET /api/articles/{id}", a.handleGetArticle)

	mux.HandleFunc("POST /api/practice", a.handleSelect)
	mux.HandleFunc("GET /api/practice", a.handleSnapshot)
	mux.HandleFunc("DELETE /api/practice", a.handleClear)
	mux.HandleFunc("POST /api/practice/begin", a.handleBegin)
	mux.HandleFunc("POST /api/practice/end", a.handleEnd)
	mux.HandleFunc("POST /api/practice/speak", a.handleSpeak)

	if mh, ok := a.providers.Microphone.(micHandler); ok {
		mux.Handle("GET /mic", mh.Handler())
	}

	a.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(a.metrics)(mux)
}

func (a *App) handleListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := a.articles.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	summaries := make([]articleSummary, 0, len(articles))
	for _, art := range articles {
		summaries = append(summaries, articleSummary{ID: art.ID, Title: art.Title})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (a *App) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid article id"))
		return
	}

	art, err := a.articles.Get(r.Context(), id)
	if errors.Is(err, content.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, articleDetail{
		ID:        art.ID,
		Title:     art.Title,
		Content:   art.Content,
		Sentences: content.SplitSentences(art.PlainText()),
		Phrases:   art.Phrases(),
	})
}

func (a *App) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	info, err := a.manager.Select(r.Context(), req.ArticleID, req.Sentence)
	if errors.Is(err, content.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *App) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := a.manager.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no sentence selected"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *App) handleClear(w http.ResponseWriter, _ *http.Request) {
	a.manager.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleBegin(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.Begin(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	a.writeSnapshot(w)
}

func (a *App) handleEnd(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.End(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	a.writeSnapshot(w)
}

func (a *App) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.SpeakReference(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeSnapshot responds with the current practice state. Begin/End always
// leave a selection in place, so a missing snapshot here means a concurrent
// Clear won the race; report it as a conflict.
func (a *App) writeSnapshot(w http.ResponseWriter) {
	snap, ok := a.manager.Snapshot()
	if !ok {
		writeError(w, http.StatusConflict, errors.New("no sentence selected"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// writeError encodes err as a JSON error body.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
