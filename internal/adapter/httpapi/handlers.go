package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
	"github.com/coinplan/coinplan-backend/internal/usecase/contribution"
)

// recordGetter is the slice of ExecutionRecordRepository the handlers need
type recordGetter interface {
	GetByMonth(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error)
}

type recordResponse struct {
	ID           string     `json:"id"`
	MonthLabel   string     `json:"monthLabel"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CanUndoUntil *time.Time `json:"canUndoUntil,omitempty"`
	TotalPlanned string     `json:"totalPlanned"`
}

func toRecordResponse(record *domain.MonthlyExecutionRecord) recordResponse {
	return recordResponse{
		ID:           record.ID.String(),
		MonthLabel:   record.MonthLabel,
		Status:       string(record.Status),
		StartedAt:    record.StartedAt,
		CompletedAt:  record.CompletedAt,
		CanUndoUntil: record.CanUndoUntil,
		TotalPlanned: record.Snapshot.TotalPlanned.String(),
	}
}

func (s *Server) handleStartTracking(w http.ResponseWriter, r *http.Request) {
	record, err := s.Execution.StartTracking(r.Context(), mux.Vars(r)["month"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordResponse(record))
}

func (s *Server) handleMarkComplete(w http.ResponseWriter, r *http.Request) {
	record, err := s.Execution.MarkComplete(r.Context(), mux.Vars(r)["month"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleUndoStart(w http.ResponseWriter, r *http.Request) {
	record, err := s.Execution.UndoStartTracking(r.Context(), mux.Vars(r)["month"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleUndoComplete(w http.ResponseWriter, r *http.Request) {
	record, err := s.Execution.UndoCompletion(r.Context(), mux.Vars(r)["month"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := s.Records.GetByMonth(r.Context(), mux.Vars(r)["month"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

type progressResponse struct {
	Totals          map[string]string `json:"totals"`
	Total           string            `json:"total"`
	ProgressPercent string            `json:"progressPercent"`
	RateUncertain   bool              `json:"rateUncertain"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	record, err := s.Records.GetByMonth(r.Context(), mux.Vars(r)["month"])
	if err != nil {
		writeError(w, err)
		return
	}

	end := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "at must be RFC3339"})
			return
		}
		end = parsed
	}

	result, err := s.Progress.ContributionTotals(r.Context(), record, end)
	if err != nil {
		writeError(w, err)
		return
	}

	totals := make(map[string]string, len(result.Totals))
	for goalID, total := range result.Totals {
		totals[goalID.String()] = total.String()
	}
	writeJSON(w, http.StatusOK, progressResponse{
		Totals:          totals,
		Total:           result.TotalContributed.String(),
		ProgressPercent: result.ProgressPercent.StringFixed(2),
		RateUncertain:   result.RateUncertain,
	})
}

type recordContributionRequest struct {
	GoalID            string `json:"goalId"`
	AssetID           string `json:"assetId"`
	Kind              string `json:"kind"`
	Amount            string `json:"amount"`
	FromGoalID        string `json:"fromGoalId,omitempty"`
	ExecutionRecordID string `json:"executionRecordId,omitempty"`
	Note              string `json:"note,omitempty"`
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	var req recordContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	goalID, err := uuid.Parse(req.GoalID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid goalId"})
		return
	}
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid assetId"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amount"})
		return
	}

	input := contribution.RecordContributionInput{
		GoalID:  goalID,
		AssetID: assetID,
		Kind:    domain.ContributionKind(req.Kind),
		Amount:  amount,
		Note:    req.Note,
	}
	if req.FromGoalID != "" {
		fromGoalID, err := uuid.Parse(req.FromGoalID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fromGoalId"})
			return
		}
		input.FromGoalID = &fromGoalID
	}
	if req.ExecutionRecordID != "" {
		recordID, err := uuid.Parse(req.ExecutionRecordID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid executionRecordId"})
			return
		}
		input.ExecutionRecordID = &recordID
	}

	entry, err := s.Contributions.RecordContribution(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":        entry.ID.String(),
		"timestamp": entry.Timestamp.Format(time.RFC3339),
	})
}

func (s *Server) handleSyncAllocations(w http.ResponseWriter, r *http.Request) {
	if err := s.Snapshotter.SyncAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}
