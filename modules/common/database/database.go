package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"video-generation-gateway/modules/common/config"
	"video-generation-gateway/modules/common/model"
)

type Client struct {
	supabase *supabase.Client
	table    string
}

// NewClient - Database 클라이언트 생성
func NewClient(cfg *config.Config) (*Client, error) {
	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	log.Printf("✅ Supabase client initialized (table: %s)", cfg.SupabaseHistoryTable)
	return &Client{
		supabase: supabaseClient,
		table:    cfg.SupabaseHistoryTable,
	}, nil
}

// RecordGeneration - 생성 결과 한 건 저장
func (c *Client) RecordGeneration(ctx context.Context, rec model.GenerationRecord) error {
	insertData := map[string]interface{}{
		"prompt": rec.Prompt,
		"status": rec.Status,
		"source": rec.Source,
	}
	if rec.JobID != "" {
		insertData["job_id"] = rec.JobID
	}
	if rec.ModelUsed != "" {
		insertData["model_used"] = rec.ModelUsed
	}
	if rec.VideoURL != "" {
		insertData["video_url"] = rec.VideoURL
	}
	if rec.ErrorMessage != "" {
		insertData["error_message"] = rec.ErrorMessage
	}

	_, _, err := c.supabase.From(c.table).
		Insert(insertData, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert generation record: %w", err)
	}

	log.Printf("💾 Generation recorded: status=%s model=%s", rec.Status, rec.ModelUsed)
	return nil
}

// ListRecent - 최근 생성 기록 조회 (최신순)
func (c *Client) ListRecent(ctx context.Context, limit int) ([]model.GenerationRecord, error) {
	data, _, err := c.supabase.From(c.table).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query generation history: %w", err)
	}

	var records []model.GenerationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse history response: %w", err)
	}
	return records, nil
}
