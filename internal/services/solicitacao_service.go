package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"geodash/internal/config"
	"geodash/internal/models"

	"github.com/google/uuid"
)

// allowedPhotoExtensions are the photo types the form accepts.
var allowedPhotoExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// MaxPhotoSize caps uploaded photos at 16 MiB.
const MaxPhotoSize = 16 << 20

var pairDelimRE = regexp.MustCompile(`[;|\t]`)

// ParseCoord parses a single coordinate, accepting a comma decimal
// separator and the U+2212 minus sign, rounded half away from zero to six
// decimal places so the value fits NUMERIC(9,6).
func ParseCoord(value string) *float64 {
	s := strings.TrimSpace(value)
	s = strings.Trim(s, ",;|")
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, "−", "-")

	// ParseFloat accepts "NaN" and "Inf"; neither fits NUMERIC(9,6)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	rounded := roundCoord(v)
	return &rounded
}

// roundCoord rounds half away from zero at the sixth decimal place.
func roundCoord(v float64) float64 {
	sign := 1.0
	if v < 0 {
		sign = -1
	}
	return sign * math.Floor(math.Abs(v)*1e6+0.5) / 1e6
}

// ParseCoordsCombined parses a "lat lon" pair. Accepted delimiters, in
// order of precedence: semicolon/pipe/tab, whitespace, then a bare comma.
// Trying explicit delimiters first keeps comma-decimal pairs such as
// "-2,053655; -47,549849" unambiguous.
func ParseCoordsCombined(value string) (*float64, *float64) {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil, nil
	}

	splitters := []func(string) []string{
		func(s string) []string { return pairDelimRE.Split(s, -1) },
		strings.Fields,
		func(s string) []string { return strings.Split(s, ",") },
	}
	for _, split := range splitters {
		parts := nonEmpty(split(s))
		if len(parts) >= 2 {
			lat := ParseCoord(parts[0])
			lon := ParseCoord(parts[1])
			if lat != nil && lon != nil {
				return lat, lon
			}
		}
	}
	return nil, nil
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// SolicitacaoService stores citizen service requests in Postgres and saved
// photos on disk.
type SolicitacaoService struct {
	db        *sql.DB
	schema    string
	table     string
	uploadDir string
}

// NewSolicitacaoService wires the store over an open database handle.
func NewSolicitacaoService(db *sql.DB, cfg config.DBConfig, uploadDir string) *SolicitacaoService {
	return &SolicitacaoService{
		db:        db,
		schema:    cfg.Schema,
		table:     cfg.Table,
		uploadDir: uploadDir,
	}
}

func (s *SolicitacaoService) qualifiedTable() string {
	return fmt.Sprintf("%q.%q", s.schema, s.table)
}

// Bootstrap makes sure the schema, table and later-added columns exist,
// matching the legacy table shape.
func (s *SolicitacaoService) Bootstrap(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			nome_rua VARCHAR(120) NOT NULL,
			numero   VARCHAR(10)  NOT NULL,
			bairro   VARCHAR(80)  NOT NULL
		)`, s.qualifiedTable()),
		fmt.Sprintf(`ALTER TABLE %s
			ADD COLUMN IF NOT EXISTS latitude   NUMERIC(9,6),
			ADD COLUMN IF NOT EXISTS longitude  NUMERIC(9,6),
			ADD COLUMN IF NOT EXISTS foto_path  TEXT,
			ADD COLUMN IF NOT EXISTS situacoes  TEXT,
			ADD COLUMN IF NOT EXISTS criado_em  TIMESTAMPTZ DEFAULT NOW()`, s.qualifiedTable()),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error bootstrapping request table: %w", err)
		}
	}
	return nil
}

// Insert stores one request and fills in its generated id and timestamp.
func (s *SolicitacaoService) Insert(ctx context.Context, req *models.Solicitacao) error {
	query := fmt.Sprintf(`INSERT INTO %s (nome_rua, numero, bairro, latitude, longitude, foto_path, situacoes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, criado_em`, s.qualifiedTable())

	err := s.db.QueryRowContext(ctx, query,
		req.Rua, req.Numero, req.Bairro, req.Latitude, req.Longitude, req.FotoPath, req.Situacoes,
	).Scan(&req.ID, &req.CriadoEm)
	if err != nil {
		return fmt.Errorf("error inserting request: %w", err)
	}
	return nil
}

// List returns all requests, newest first.
func (s *SolicitacaoService) List(ctx context.Context) ([]models.Solicitacao, error) {
	query := fmt.Sprintf(`SELECT id, nome_rua, numero, bairro, latitude, longitude, foto_path, situacoes, criado_em
		FROM %s ORDER BY id DESC`, s.qualifiedTable())

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing requests: %w", err)
	}
	defer rows.Close()

	var result []models.Solicitacao
	for rows.Next() {
		var item models.Solicitacao
		if err := rows.Scan(&item.ID, &item.Rua, &item.Numero, &item.Bairro,
			&item.Latitude, &item.Longitude, &item.FotoPath, &item.Situacoes, &item.CriadoEm); err != nil {
			return nil, fmt.Errorf("error scanning request row: %w", err)
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// AllowedPhoto reports whether the uploaded filename has an accepted
// image extension.
func AllowedPhoto(filename string) bool {
	return allowedPhotoExtensions[strings.ToLower(filepath.Ext(filename))]
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SavePhoto writes an uploaded photo under the upload directory with a
// sanitized, collision-free name and returns its public path.
func (s *SolicitacaoService) SavePhoto(filename string, r io.Reader) (string, error) {
	if !AllowedPhoto(filename) {
		return "", fmt.Errorf("unsupported photo type: %s", filepath.Ext(filename))
	}
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("error creating upload directory: %v", err)
	}

	base := unsafeFilenameChars.ReplaceAllString(filepath.Base(filename), "_")
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(base, ext), uuid.New().String(), ext)

	dest, err := os.Create(filepath.Join(s.uploadDir, name))
	if err != nil {
		return "", fmt.Errorf("error creating photo file: %v", err)
	}
	defer dest.Close()

	// Read one byte past the cap so an oversize photo is rejected rather
	// than stored truncated.
	written, err := io.Copy(dest, io.LimitReader(r, MaxPhotoSize+1))
	if err != nil {
		os.Remove(dest.Name())
		return "", fmt.Errorf("error saving photo: %v", err)
	}
	if written > MaxPhotoSize {
		os.Remove(dest.Name())
		return "", fmt.Errorf("photo exceeds the %d byte limit", MaxPhotoSize)
	}
	return "/static/uploads/" + name, nil
}
