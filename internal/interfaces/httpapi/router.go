package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
	"github.com/riskibarqy/fantasy-draft/internal/platform/tracing"
	"go.opentelemetry.io/otel/trace"
)

var handlerSpans = tracing.NewScope(
	"fantasy-draft/internal/interfaces/httpapi",
	tracing.WithNamePrefix("httpapi.Handler."),
)

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return handlerSpans.Start(ctx, name)
}

type RouterConfig struct {
	CORSAllowedOrigins []string
	InternalJobToken   string
}

type route struct {
	pattern string
	handler http.HandlerFunc
	guard   func(http.Handler) http.Handler
}

func (h *Handler) routes(verifier TokenVerifier, internalJobToken string) []route {
	caller := func(next http.Handler) http.Handler { return RequireAuth(verifier, next) }
	job := func(next http.Handler) http.Handler { return RequireInternalJobToken(internalJobToken, next) }

	return []route{
		{pattern: "GET /healthz", handler: h.Healthz},

		{pattern: "GET /v1/leagues/{leagueID}/draft", handler: h.GetDraftState, guard: caller},
		{pattern: "POST /v1/leagues/{leagueID}/draft/picks", handler: h.SubmitDraftPick, guard: caller},
		{pattern: "GET /v1/leagues/{leagueID}/draft/teams/{teamID}/overdue", handler: h.GetDraftTurnOverdue, guard: caller},
		// Commissioner only; the usecase checks the caller against the league.
		{pattern: "POST /v1/leagues/{leagueID}/draft/start", handler: h.StartDraft, guard: caller},
		{pattern: "POST /v1/leagues/{leagueID}/draft/pause", handler: h.PauseDraft, guard: caller},
		{pattern: "POST /v1/leagues/{leagueID}/draft/resume", handler: h.ResumeDraft, guard: caller},
		{pattern: "POST /v1/leagues/{leagueID}/draft/force-pick", handler: h.ForceDraftPick, guard: caller},

		{pattern: "POST /v1/internal/jobs/draft-autopick", handler: h.RunDraftAutoPickJob, guard: job},
		{pattern: "POST /v1/internal/jobs/draft-sweep", handler: h.RunDraftSweepJob, guard: job},
	}
}

// NewRouter mounts every route behind tracing, access logging, CORS and
// panic recovery, outermost first.
func NewRouter(handler *Handler, verifier TokenVerifier, logger *logging.Logger, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	for _, rt := range handler.routes(verifier, cfg.InternalJobToken) {
		var next http.Handler = rt.handler
		if rt.guard != nil {
			next = rt.guard(next)
		}
		mux.Handle(rt.pattern, withRoute(next))
	}

	return RequestTracing(RequestLogging(logger, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux))))
}

// withRoute records the matched pattern, which ServeMux only sets on the
// request it hands to the route.
func withRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noteRoute(r.Context(), r.Pattern)
		next.ServeHTTP(w, r)
	})
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			ctx := r.Context()
			err := fmt.Errorf("panic: %v", rec)
			tracing.Fail(ctx, err)

			args := []any{"panic", rec, "method", r.Method, "stack", string(debug.Stack())}
			if meta := requestMetaFromContext(ctx); meta != nil && meta.route != "" {
				args = append(args, "route", meta.route)
			}
			logger.ErrorContext(ctx, "panic recovered", args...)

			if sr, ok := w.(*statusRecorder); ok && sr.wroteHeader {
				return
			}
			writeErrorBody(w, internalError, internalMessage)
		}()
		next.ServeHTTP(w, r)
	})
}
