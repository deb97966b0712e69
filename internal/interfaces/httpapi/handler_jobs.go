package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/fantasy-draft/internal/usecase"
)

// RunDraftAutoPickJob is the delivery target of the delayed auto-pick job.
// Lost races and turns that are no longer overdue answer 200 so the queue
// does not redeliver.
func (h *Handler) RunDraftAutoPickJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunDraftAutoPickJob")
	defer span.End()

	if h.draftJobService == nil {
		writeError(ctx, w, fmt.Errorf("%w: draft job service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req draftAutoPickJobRequest
	if err := h.decodeRequest(ctx, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	dispatchID := strings.TrimSpace(req.DispatchID)
	if dispatchID == "" {
		dispatchID = strings.TrimSpace(r.Header.Get("Upstash-Message-Id"))
	}

	result, err := h.draftJobService.RunAutoPick(ctx, usecase.AutoPickJobInput{
		LeagueID:    req.LeagueID,
		TeamID:      req.TeamID,
		OverallPick: req.OverallPick,
		DispatchID:  dispatchID,
	})
	if err != nil {
		if usecase.IsLostAutoPickRace(err) {
			h.logger.InfoContext(ctx, "draft auto pick job lost race",
				"league_id", req.LeagueID,
				"team_id", req.TeamID,
				"overall_pick", req.OverallPick,
				"error", err,
			)
			writeSuccess(ctx, w, http.StatusOK, usecase.AutoPickJobResult{
				LeagueID:    req.LeagueID,
				TeamID:      req.TeamID,
				SkipReason:  usecase.SkipReasonLostRace,
				OverallPick: req.OverallPick,
			})
			return
		}
		h.logger.WarnContext(ctx, "run draft auto pick job failed",
			"league_id", req.LeagueID,
			"team_id", req.TeamID,
			"overall_pick", req.OverallPick,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunDraftSweepJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunDraftSweepJob")
	defer span.End()

	if h.draftSweeper == nil {
		writeError(ctx, w, fmt.Errorf("%w: draft sweeper is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.draftSweeper.SweepOnce(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run draft sweep job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}
