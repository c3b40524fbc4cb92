// Package archive exports odds_history rows to cold storage before the
// retention sweeper hard-deletes them: Snappy Parquet objects uploaded to
// S3, with a local spool fallback.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "github.com/kestrelodds/arbiter/internal/pkg/config"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// historyRecord is the Parquet row shape for one archived odds_history
// observation.
type historyRecord struct {
	MatchID    string  `parquet:"name=match_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProviderID int32   `parquet:"name=provider_id, type=INT32"`
	BetTypeID  int32   `parquet:"name=bet_type_id, type=INT32"`
	Margin     float64 `parquet:"name=margin, type=DOUBLE"`
	Selection  string  `parquet:"name=selection, type=BYTE_ARRAY, convertedtype=UTF8"`
	P1         float64 `parquet:"name=p1, type=DOUBLE"`
	P2         float64 `parquet:"name=p2, type=DOUBLE"`
	P3         float64 `parquet:"name=p3, type=DOUBLE"`
	ObservedAt int64   `parquet:"name=observed_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// memFile is an in-memory source.ParquetFile, since a sweep's whole export
// fits comfortably in RAM and never needs a local temp file.
type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile { return &memFile{buffer: &bytes.Buffer{}} }

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)             { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                   { return 0, fmt.Errorf("archive: read not supported") }
func (m *memFile) Write(b []byte) (int, error)                { return m.buffer.Write(b) }
func (m *memFile) Close() error                               { return nil }
func (m *memFile) Bytes() []byte                               { return m.buffer.Bytes() }

// Exporter uploads batches of OddsHistory rows as partitioned Parquet
// objects in S3, spooling to a local directory instead when no bucket is
// configured or the upload fails.
type Exporter struct {
	cfg      appconfig.ArchiveConfig
	uploader *manager.Uploader
}

func NewExporter(ctx context.Context, cfg appconfig.ArchiveConfig) (*Exporter, error) {
	if cfg.S3Bucket == "" {
		if cfg.SpoolDir == "" {
			return nil, fmt.Errorf("archive: neither s3_bucket nor spool_dir configured")
		}
		return &Exporter{cfg: cfg}, nil
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3PathStyle
	})
	// manager.Uploader chunks into multipart requests once a sweep's export
	// crosses its part-size threshold, so a quiet week's pile-up of history
	// rows can't blow a single PutObject call's size limit.
	uploader := manager.NewUploader(client)
	return &Exporter{cfg: cfg, uploader: uploader}, nil
}

// Export writes rows to one Parquet object in S3, partitioned by the sweep
// date, and returns the uploaded key. When no uploader is wired (spool-only
// configuration) or the upload fails with a spool directory available, the
// same object is written under SpoolDir so no expiring history is lost, and
// the spooled file's path is returned instead of the key.
func (e *Exporter) Export(ctx context.Context, rows []models.OddsHistory) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	key := e.objectKey()
	if e.uploader == nil {
		return e.spool(rows, key)
	}

	data, err := encodeParquet(rows)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(e.cfg.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata:    map[string]string{"content-type": "parquet", "rows": fmt.Sprintf("%d", len(rows))},
	}
	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if _, err := e.uploader.Upload(uploadCtx, input); err != nil {
		if e.cfg.SpoolDir != "" {
			return e.spool(rows, key)
		}
		return "", fmt.Errorf("archive: uploading %s: %w", key, err)
	}
	return key, nil
}

// spool writes rows as a Parquet file under SpoolDir, mirroring the S3 key
// layout so a later re-upload can walk the directory as-is.
func (e *Exporter) spool(rows []models.OddsHistory, key string) (string, error) {
	path := filepath.Join(e.cfg.SpoolDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("archive: creating spool dir: %w", err)
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return "", fmt.Errorf("archive: opening spool file %s: %w", path, err)
	}
	pw, err := writer.NewParquetWriter(fw, new(historyRecord), 1)
	if err != nil {
		fw.Close()
		return "", fmt.Errorf("archive: new spool parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, h := range rows {
		if err := pw.Write(toRecord(h)); err != nil {
			pw.WriteStop()
			fw.Close()
			return "", fmt.Errorf("archive: spooling record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return "", fmt.Errorf("archive: finalizing spool file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("archive: closing spool file: %w", err)
	}
	return path, nil
}

func encodeParquet(rows []models.OddsHistory) ([]byte, error) {
	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, new(historyRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("archive: new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, h := range rows {
		if err := pw.Write(toRecord(h)); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("archive: writing record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("archive: finalizing parquet: %w", err)
	}
	return mem.Bytes(), nil
}

func toRecord(h models.OddsHistory) historyRecord {
	return historyRecord{
		MatchID:    h.MatchID,
		ProviderID: int32(h.ProviderID),
		BetTypeID:  int32(h.BetTypeID),
		Margin:     h.Margin,
		Selection:  h.Selection,
		P1:         derefOrZero(h.P1),
		P2:         derefOrZero(h.P2),
		P3:         derefOrZero(h.P3),
		ObservedAt: h.ObservedAt.UnixMilli(),
	}
}

func derefOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func (e *Exporter) objectKey() string {
	prefix := strings.TrimSuffix(e.cfg.KeyPrefix, "/")
	if prefix == "" {
		prefix = "odds_history"
	}
	datePart := time.Now().UTC().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.parquet", time.Now().UTC().Format("20060102150405"), uuid.NewString())
	return filepath.ToSlash(filepath.Join(prefix, fmt.Sprintf("date=%s", datePart), filename))
}
