package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quantdesk/quantdesk/internal/book"
	"github.com/quantdesk/quantdesk/internal/desk"
	"github.com/quantdesk/quantdesk/internal/impact"
	"github.com/quantdesk/quantdesk/internal/metrics"
	"github.com/quantdesk/quantdesk/internal/persistence"
	"github.com/quantdesk/quantdesk/internal/types"
)

type planRequest struct {
	RegionID int32 `json:"region_id"`
	TypeID   int32 `json:"type_id"`
	Quantity int64 `json:"quantity"`
	IsBuy    bool  `json:"is_buy"`

	// WithImpact additionally calibrates the impact model from history and
	// annotates the plan with it.
	WithImpact   bool    `json:"with_impact"`
	Urgency      float64 `json:"urgency"`
	LookbackDays int     `json:"lookback_days"`
}

type planResponse struct {
	RegionID int32            `json:"region_id"`
	TypeID   int32            `json:"type_id"`
	Quantity int64            `json:"quantity"`
	IsBuy    bool             `json:"is_buy"`
	Plan     book.Plan        `json:"plan"`
	Impact   *impact.Estimate `json:"impact,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.RegionID <= 0 || req.TypeID <= 0 {
		writeError(w, http.StatusBadRequest, "region_id and type_id are required")
		return
	}

	timer := metrics.NewTimer()
	defer timer.ObservePlan()

	orders, err := s.source.Orders(r.Context(), req.RegionID, req.TypeID)
	if err != nil {
		s.logger.Warn("order book fetch failed",
			"region_id", req.RegionID, "type_id", req.TypeID, "err", err)
		writeError(w, http.StatusBadGateway, "order book unavailable")
		return
	}

	levels := book.BuildLevels(orders, req.IsBuy)
	plan, err := book.Simulate(levels, req.Quantity)
	if err != nil {
		if errors.Is(err, types.ErrInvalidQuantity) {
			writeError(w, http.StatusBadRequest, "quantity must be positive")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.recorder.RecordPlan(req.IsBuy, plan.CanFill)

	resp := planResponse{
		RegionID: req.RegionID,
		TypeID:   req.TypeID,
		Quantity: req.Quantity,
		IsBuy:    req.IsBuy,
		Plan:     plan,
	}

	if req.WithImpact {
		lookback := req.LookbackDays
		if lookback <= 0 {
			lookback = s.cfg.Impact.LookbackDays
		}
		history, err := s.source.History(r.Context(), req.RegionID, req.TypeID)
		if err != nil {
			// The plan still stands on its own; impact annotation is best
			// effort.
			s.logger.Warn("history fetch failed, skipping impact",
				"region_id", req.RegionID, "type_id", req.TypeID, "err", err)
		} else {
			params := impact.Calibrate(impact.PointsFromHistory(history), lookback)
			s.recorder.RecordCalibration(params.DaysUsed > 0)
			est := impact.NewEstimate(params, req.Quantity, req.Urgency)
			resp.Impact = &est
		}
	}

	writeJSON(w, resp)
}

type deskRequest struct {
	Orders  []types.OwnOrder `json:"orders"`
	Options deskOptions      `json:"options"`
}

type deskOptions struct {
	SalesTaxPercent   *float64 `json:"sales_tax_percent"`
	BrokerFeePercent  *float64 `json:"broker_fee_percent"`
	TargetETADays     *float64 `json:"target_eta_days"`
	WarnExpiryDays    *int     `json:"warn_expiry_days"`
	HistoryWindowDays *int     `json:"history_window_days"`
}

func (s *Server) deskOptionsFrom(o deskOptions) desk.Options {
	opt := desk.Options{
		SalesTaxPercent:   s.cfg.Desk.SalesTaxPercent,
		BrokerFeePercent:  s.cfg.Desk.BrokerFeePercent,
		TargetETADays:     s.cfg.Desk.TargetETADays,
		WarnExpiryDays:    s.cfg.Desk.WarnExpiryDays,
		HistoryWindowDays: s.cfg.Desk.HistoryWindowDays,
	}
	if o.SalesTaxPercent != nil {
		opt.SalesTaxPercent = *o.SalesTaxPercent
	}
	if o.BrokerFeePercent != nil {
		opt.BrokerFeePercent = *o.BrokerFeePercent
	}
	if o.TargetETADays != nil {
		opt.TargetETADays = *o.TargetETADays
	}
	if o.WarnExpiryDays != nil {
		opt.WarnExpiryDays = *o.WarnExpiryDays
	}
	if o.HistoryWindowDays != nil {
		opt.HistoryWindowDays = *o.HistoryWindowDays
	}
	return opt
}

func (s *Server) handleDesk(w http.ResponseWriter, r *http.Request) {
	var req deskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDesk()

	// One book and history fetch per distinct pair; a failed book fetch marks
	// the pair unavailable instead of failing the whole review.
	var bookOrders []types.MarketOrder
	history := make(map[types.PairKey][]types.HistoryEntry)
	unavailable := make(map[types.PairKey]bool)
	seen := make(map[types.PairKey]bool)

	for _, own := range req.Orders {
		key := types.NewPairKey(own.RegionID, own.TypeID)
		if seen[key] {
			continue
		}
		seen[key] = true

		orders, err := s.source.Orders(r.Context(), key.RegionID(), key.TypeID())
		if err != nil {
			s.logger.Warn("order book fetch failed",
				"region_id", key.RegionID(), "type_id", key.TypeID(), "err", err)
			unavailable[key] = true
		} else {
			bookOrders = append(bookOrders, orders...)
		}

		entries, err := s.source.History(r.Context(), key.RegionID(), key.TypeID())
		if err != nil {
			s.logger.Warn("history fetch failed",
				"region_id", key.RegionID(), "type_id", key.TypeID(), "err", err)
		} else {
			history[key] = entries
		}
	}

	result := desk.Compute(req.Orders, bookOrders, history, unavailable, s.deskOptionsFrom(req.Options))
	for _, row := range result.Orders {
		s.recorder.RecordDeskRow(string(row.Recommendation))
	}

	if s.store != nil && len(result.Orders) > 0 {
		report := persistence.DeskReport{
			ID:              uuid.NewString(),
			CreatedAt:       time.Now().UTC(),
			TotalOrders:     result.Summary.TotalOrders,
			BuyOrders:       result.Summary.BuyOrders,
			SellOrders:      result.Summary.SellOrders,
			NeedsReprice:    result.Summary.NeedsReprice,
			NeedsCancel:     result.Summary.NeedsCancel,
			UnknownETACount: result.Summary.UnknownETACount,
			TotalNotional:   result.Summary.TotalNotional,
			MedianETADays:   result.Summary.MedianETADays,
		}
		if err := s.store.SaveDeskReport(r.Context(), report); err != nil {
			s.logger.Error("save desk report failed", "err", err)
			s.recorder.RecordError("persistence")
		}
	}

	writeJSON(w, result)
}

func (s *Server) handleDeskReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "persistence disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	reports, err := s.store.ListDeskReports(r.Context(), limit)
	if err != nil {
		s.logger.Error("list desk reports failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not load reports")
		return
	}
	writeJSON(w, map[string]any{"reports": reports, "count": len(reports)})
}
