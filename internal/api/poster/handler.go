package poster

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	appMiddleware "github.com/FACorreiaa/go-map-poster/app/middleware"
	"github.com/FACorreiaa/go-map-poster/internal/api"
	"github.com/FACorreiaa/go-map-poster/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// DefaultCatalogWait bounds how long a page waits for a new session's theme
// list before rendering with the default theme only.
const DefaultCatalogWait = 2 * time.Second

type Handler struct {
	logger      *slog.Logger
	service     Service
	catalogWait time.Duration
}

func NewPosterHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		catalogWait: DefaultCatalogWait,
	}
}

func (h *Handler) session(r *http.Request) (*Session, bool) {
	id, ok := appMiddleware.GetSessionIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return h.service.Session(r.Context(), id), true
}

// awaitCatalog lets a fresh session's theme load finish before the selector is
// rendered. A slow or failing backend only delays the page by catalogWait.
func (h *Handler) awaitCatalog(ctx context.Context, sess *Session) {
	select {
	case <-sess.Catalog().Done():
		return
	default:
	}

	timer := time.NewTimer(h.catalogWait)
	defer timer.Stop()
	select {
	case <-sess.Catalog().Done():
	case <-timer.C:
		h.logger.DebugContext(ctx, "Rendering before theme catalog loaded", slog.String("session_id", sess.ID))
	case <-ctx.Done():
	}
}

// Index handles GET / - renders the form and the current result.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(r)
	if !ok {
		http.Error(w, "Missing session", http.StatusBadRequest)
		return
	}
	h.awaitCatalog(r.Context(), sess)
	h.render(w, r, http.StatusOK, sess.Snapshot())
}

// Submit handles POST /generate - the form submit, which starts a preview.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PosterHandler").Start(r.Context(), "Submit")
	defer span.End()

	l := h.logger.With(slog.String("method", "Submit"))

	sess, ok := h.session(r)
	if !ok {
		http.Error(w, "Missing session", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		l.WarnContext(ctx, "Invalid form body", slog.Any("error", err))
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	sess.SetForm(r.PostFormValue("city"), r.PostFormValue("country"), r.PostFormValue("theme"))
	h.startAsync(ctx, w, r, sess, types.QualityPreview)
}

// Print handles POST /print - regenerates the shown poster at print quality.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PosterHandler").Start(r.Context(), "Print")
	defer span.End()

	sess, ok := h.session(r)
	if !ok {
		http.Error(w, "Missing session", http.StatusBadRequest)
		return
	}
	h.startAsync(ctx, w, r, sess, types.QualityPrint)
}

func (h *Handler) startAsync(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session, quality types.Quality) {
	gen, err := sess.Start(context.WithoutCancel(ctx), quality)
	if err != nil {
		snap := sess.Snapshot()
		snap.Error = "City and country are required."
		h.render(w, r, http.StatusUnprocessableEntity, snap)
		return
	}

	go func() {
		// Failures are already reflected in the session state.
		_ = gen.Run()
	}()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Download handles GET /download - sends the shown poster as an attachment.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(r)
	if !ok {
		http.Error(w, "Missing session", http.StatusBadRequest)
		return
	}

	dl, err := sess.Download(r.Context())
	if err != nil {
		// Back to the page: it shows the notice, or the pending request.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeAttachment(w, dl)
}

// Themes handles GET /api/v1/themes.
func (h *Handler) Themes(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "missing session")
		return
	}
	h.awaitCatalog(r.Context(), sess)
	api.WriteJSONResponse(w, r, http.StatusOK, types.ThemesResponse{Themes: sess.Catalog().Options()})
}

// State handles GET /api/v1/state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "missing session")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, sess.Snapshot())
}

// Generate handles POST /api/v1/generate and waits for the backend.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PosterHandler").Start(r.Context(), "Generate")
	defer span.End()

	l := h.logger.With(slog.String("method", "Generate"))

	sess, ok := h.session(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "missing session")
		return
	}

	var params types.GenerateParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Invalid generate body", slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	quality, err := types.ParseQuality(params.Quality)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if quality == types.QualityPreview || params.City != "" || params.Country != "" {
		sess.SetForm(params.City, params.Country, params.Theme)
	}

	err = sess.Generate(ctx, quality)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "poster ready")
		api.WriteJSONResponse(w, r, http.StatusOK, sess.Snapshot())
	case errors.Is(err, types.ErrMissingCity), errors.Is(err, types.ErrMissingCountry):
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrSuperseded):
		api.ErrorResponse(w, r, http.StatusConflict, "superseded by a newer request")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		api.ErrorResponse(w, r, http.StatusBadGateway, types.GenerateFailedMessage)
	}
}

// DownloadJSON handles GET /api/v1/download.
func (h *Handler) DownloadJSON(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "missing session")
		return
	}

	dl, err := sess.Download(r.Context())
	switch {
	case err == nil:
		writeAttachment(w, dl)
	case errors.Is(err, ErrNothingToDownload):
		api.ErrorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrGenerating):
		api.ErrorResponse(w, r, http.StatusConflict, err.Error())
	default:
		api.ErrorResponse(w, r, http.StatusBadGateway, types.DownloadFailedMessage)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, snap Snapshot) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, snap); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render page", slog.Any("error", err))
	}
}

func writeAttachment(w http.ResponseWriter, dl *Download) {
	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Data)
}
