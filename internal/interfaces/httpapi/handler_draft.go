package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/usecase"
)

func (h *Handler) GetDraftState(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDraftState")
	defer span.End()

	leagueID := pathValue(r, "leagueID")
	state, err := h.draftService.GetDraftState(ctx, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "get draft state failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, draftStateToDTO(state))
}

func (h *Handler) SubmitDraftPick(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitDraftPick")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal missing from context", usecase.ErrUnauthorized))
		return
	}

	var req submitPickRequest
	if err := h.decodeRequest(ctx, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := pathValue(r, "leagueID")
	result, err := h.draftService.SubmitPick(ctx, usecase.SubmitPickInput{
		LeagueID: leagueID,
		CallerID: principal.UserID,
		AssetID:  req.AssetID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit draft pick failed",
			"league_id", leagueID,
			"user_id", principal.UserID,
			"asset_id", req.AssetID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, pickResultToDTO(result))
}

func (h *Handler) StartDraft(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartDraft")
	defer span.End()

	var req startDraftRequest
	if err := h.decodeRequest(ctx, r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.runAdminTransition(w, r, "start", req.SecondsPerPick, h.draftService.Start)
}

func (h *Handler) PauseDraft(w http.ResponseWriter, r *http.Request) {
	h.runAdminTransition(w, r, "pause", 0, h.draftService.Pause)
}

func (h *Handler) ResumeDraft(w http.ResponseWriter, r *http.Request) {
	h.runAdminTransition(w, r, "resume", 0, h.draftService.Resume)
}

type adminTransition func(ctx context.Context, input usecase.AdminInput) (draft.League, error)

func (h *Handler) runAdminTransition(w http.ResponseWriter, r *http.Request, action string, secondsPerPick int, fn adminTransition) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DraftAdmin")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal missing from context", usecase.ErrUnauthorized))
		return
	}

	leagueID := pathValue(r, "leagueID")
	league, err := fn(ctx, usecase.AdminInput{
		LeagueID:       leagueID,
		Actor:          principal,
		SecondsPerPick: secondsPerPick,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "draft admin transition failed",
			"action", action,
			"league_id", leagueID,
			"user_id", principal.UserID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, draftLeagueToDTO(league))
}

func (h *Handler) ForceDraftPick(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ForceDraftPick")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal missing from context", usecase.ErrUnauthorized))
		return
	}

	var req forcePickRequest
	if err := h.decodeRequest(ctx, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := pathValue(r, "leagueID")
	result, err := h.draftService.ForcePick(ctx, usecase.ForcePickInput{
		LeagueID: leagueID,
		Actor:    principal,
		TeamID:   req.TeamID,
		AssetID:  req.AssetID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "force draft pick failed",
			"league_id", leagueID,
			"team_id", req.TeamID,
			"asset_id", req.AssetID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, pickResultToDTO(result))
}

func (h *Handler) GetDraftTurnOverdue(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDraftTurnOverdue")
	defer span.End()

	leagueID := pathValue(r, "leagueID")
	teamID := pathValue(r, "teamID")
	overdue, err := h.draftService.IsOverdue(ctx, leagueID, teamID)
	if err != nil {
		h.logger.WarnContext(ctx, "check draft overdue failed", "league_id", leagueID, "team_id", teamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, overdueDTO{LeagueID: leagueID, TeamID: teamID, Overdue: overdue})
}
