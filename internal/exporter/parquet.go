package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/cdurand/climatrend/internal/cloudwriter"
	"github.com/cdurand/climatrend/internal/models"
)

type ParquetOutput struct {
	file   source.ParquetFile
	writer *writer.ParquetWriter
}

// NewParquetOutput writes a single observations parquet file, locally or
// straight to the configured bucket.
func NewParquetOutput(cfg *models.Config) (*ParquetOutput, error) {
	var (
		file source.ParquetFile
		err  error
	)

	if cfg.Cloud.Provider != "" {
		var factory cloudwriter.CloudWriterFactory
		switch cfg.Cloud.Provider {
		case "s3":
			factory, err = cloudwriter.NewS3WriterFactory(cfg.Cloud.Region)
		default:
			return nil, fmt.Errorf("unsupported cloud storage provider: %s", cfg.Cloud.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
		}

		objectPath := filepath.Join(cfg.Cloud.Prefix, "observations.parquet")
		cw, err := factory.NewWriter(cfg.Cloud.BucketName, objectPath, "application/octet-stream")
		if err != nil {
			return nil, err
		}
		file = newCloudParquetFile(cw)
	} else {
		if err := os.MkdirAll(cfg.Export.OutputPath, os.ModePerm); err != nil {
			return nil, err
		}
		file, err = local.NewLocalFileWriter(filepath.Join(cfg.Export.OutputPath, "observations.parquet"))
		if err != nil {
			return nil, err
		}
	}

	pw, err := writer.NewParquetWriter(file, new(models.ObservationRecord), 4)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	return &ParquetOutput{file: file, writer: pw}, nil
}

func (p *ParquetOutput) WriteMessage(topic string, msg []byte) error {
	var event models.ObservationEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return err
	}
	return p.writer.Write(event.Record())
}

func (p *ParquetOutput) Close() error {
	if err := p.writer.WriteStop(); err != nil {
		p.file.Close()
		return err
	}
	return p.file.Close()
}

// cloudParquetFile adapts a CloudWriter to the parquet source interface.
// Parquet writing is append-only, so only forward writes are supported.
type cloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func newCloudParquetFile(cw cloudwriter.CloudWriter) *cloudParquetFile {
	return &cloudParquetFile{cloudWriter: cw}
}

func (c *cloudParquetFile) Open(name string) (source.ParquetFile, error) {
	return c, nil
}

func (c *cloudParquetFile) Create(name string) (source.ParquetFile, error) {
	return c, nil
}

func (c *cloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.offset = offset
	case io.SeekCurrent:
		c.offset += offset
	case io.SeekEnd:
		return 0, fmt.Errorf("seek from end not supported for cloud storage")
	}
	return c.offset, nil
}

func (c *cloudParquetFile) Read(p []byte) (int, error) {
	return 0, fmt.Errorf("read not supported for cloud storage")
}

func (c *cloudParquetFile) Write(p []byte) (int, error) {
	n, err := c.cloudWriter.Write(p)
	c.offset += int64(n)
	return n, err
}

func (c *cloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}
