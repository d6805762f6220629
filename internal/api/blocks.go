package api

import (
	"net/http"
	"strings"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
)

type createBlockRequest struct {
	// DayID or Date selects the day; Date creates the day if needed.
	DayID       string          `json:"day_id"`
	Date        string          `json:"date"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartTime   string          `json:"start_time"`
	Duration    int             `json:"duration"`
	Type        model.BlockType `json:"type"`
}

func (s *Server) createBlock(w http.ResponseWriter, r *http.Request) {
	var req createBlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	uid := userID(r)

	dayID := req.DayID
	if dayID == "" {
		if err := planner.ValidateDate(req.Date); err != nil {
			s.fail(w, r, err)
			return
		}
		day, err := s.store.GetOrCreateDay(r.Context(), uid, req.Date)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		dayID = day.ID
	}

	if req.Type == "" {
		req.Type = model.BlockTypeDeepWork
	}
	block, err := s.store.CreateBlock(r.Context(), model.Block{
		UserID:      uid,
		DayID:       dayID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		Duration:    req.Duration,
		Type:        req.Type,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

func (s *Server) getBlock(w http.ResponseWriter, r *http.Request) {
	block, err := s.store.GetBlock(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

type updateBlockRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	StartTime   *string          `json:"start_time"`
	Duration    *int             `json:"duration"`
	Type        *model.BlockType `json:"type"`
}

func (s *Server) updateBlock(w http.ResponseWriter, r *http.Request) {
	var req updateBlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, uid, id := r.Context(), userID(r), r.PathValue("id")

	block, err := s.store.GetBlock(ctx, uid, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Title != nil {
		block.Title = *req.Title
	}
	if req.Description != nil {
		block.Description = *req.Description
	}
	if req.StartTime != nil {
		block.StartTime = *req.StartTime
	}
	if req.Duration != nil {
		block.Duration = *req.Duration
	}
	if req.Type != nil {
		block.Type = *req.Type
	}

	if err := s.store.UpdateBlock(ctx, *block); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.store.GetBlock(ctx, uid, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// deleteBlock removes a block. The optional dayId query parameter must
// name the block's day when present.
func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	result, err := s.store.DeleteBlock(r.Context(), userID(r), r.URL.Query().Get("dayId"), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type reorderRequest struct {
	BlockID   string `json:"blockId"`
	DayID     string `json:"dayId"`
	Direction string `json:"direction"`
}

// reorderBlock swaps a block with its neighbour and returns the day's
// blocks in their new order.
func (s *Server) reorderBlock(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := required("blockId", req.BlockID); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := required("dayId", req.DayID); err != nil {
		s.fail(w, r, err)
		return
	}
	dir, err := planner.ParseDirection(strings.ToLower(req.Direction))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, uid := r.Context(), userID(r)
	if err := s.store.ReorderBlock(ctx, uid, req.DayID, req.BlockID, dir); err != nil {
		s.fail(w, r, err)
		return
	}
	blocks, err := s.store.ListBlocks(ctx, uid, req.DayID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) completeBlock(w http.ResponseWriter, r *http.Request) {
	block, err := s.store.CompleteBlock(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) reactivateBlock(w http.ResponseWriter, r *http.Request) {
	block, err := s.store.ReactivateBlock(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

type dragEndItem struct {
	BlockID string `json:"blockId"`
	Index   int    `json:"index"`
	Tasks   []struct {
		TaskID string `json:"taskId"`
	} `json:"tasks"`
}

// dragEnd applies a full arrangement of blocks and their tasks atomically.
func (s *Server) dragEnd(w http.ResponseWriter, r *http.Request) {
	var req []dragEndItem
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	items := make([]planner.BlockArrangement, 0, len(req))
	for _, it := range req {
		ids := make([]string, 0, len(it.Tasks))
		for _, t := range it.Tasks {
			ids = append(ids, t.TaskID)
		}
		items = append(items, planner.BlockArrangement{BlockID: it.BlockID, Index: it.Index, TaskIDs: ids})
	}

	if err := s.store.ApplyDragEnd(r.Context(), userID(r), items); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(items)})
}
