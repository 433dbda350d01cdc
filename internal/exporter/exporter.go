// Package exporter writes fetched observations to downstream destinations:
// stdout, CSV, NDJSON, Parquet (locally or on S3) or a Kafka topic.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lucsky/cuid"

	"github.com/cdurand/climatrend/internal/cloudwriter"
	"github.com/cdurand/climatrend/internal/models"
)

// Destination receives encoded observation events.
type Destination interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

// observationColumns is the stable CSV column order.
var observationColumns = []string{
	"event_id", "emitted_at", "station_id", "date", "year", "month", "day",
	"temp_mean", "temp_min", "temp_max", "precip",
}

// Envelope wraps an observation in an export event with a fresh cuid.
func Envelope(o models.DailyObservation) models.ObservationEvent {
	return models.ObservationEvent{
		EventID:   cuid.New(),
		EmittedAt: time.Now().UTC(),
		StationID: o.StationID,
		Date:      o.Date,
		Year:      o.Year,
		Month:     o.Month,
		Day:       o.Day,
		TempMean:  o.TempMean,
		TempMin:   o.TempMin,
		TempMax:   o.TempMax,
		Precip:    o.Precip,
	}
}

// ForConfig picks the destination the config asks for.
func ForConfig(cfg *models.Config) (Destination, error) {
	if cfg.Export.KafkaEnabled {
		return NewKafkaOutput(cfg.Export.KafkaBrokerList)
	}
	switch cfg.Export.Format {
	case "console", "":
		return &ConsoleOutput{}, nil
	case "csv":
		return NewCSVOutput(cfg.Export.OutputPath)
	case "json":
		return NewJSONOutput(cfg.Export.OutputPath)
	case "parquet":
		return NewParquetOutput(cfg)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", cfg.Export.Format)
	}
}

type ConsoleOutput struct{}

func (c *ConsoleOutput) WriteMessage(topic string, msg []byte) error {
	_, err := fmt.Fprintf(os.Stdout, "%s: %s\n", topic, msg)
	return err
}

func (c *ConsoleOutput) Close() error { return nil }

type CSVOutput struct {
	file   *os.File
	writer *csv.Writer
}

func NewCSVOutput(basePath string) (*CSVOutput, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	file, err := os.Create(filepath.Join(basePath, "observations.csv"))
	if err != nil {
		return nil, err
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(observationColumns); err != nil {
		file.Close()
		return nil, err
	}
	return &CSVOutput{file: file, writer: writer}, nil
}

func (c *CSVOutput) WriteMessage(topic string, msg []byte) error {
	var event models.ObservationEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return err
	}

	row := []string{
		event.EventID,
		event.EmittedAt.Format(time.RFC3339),
		event.StationID,
		event.Date,
		strconv.Itoa(event.Year),
		strconv.Itoa(event.Month),
		strconv.Itoa(event.Day),
		formatNullable(event.TempMean),
		formatNullable(event.TempMin),
		formatNullable(event.TempMax),
		formatNullable(event.Precip),
	}
	if err := c.writer.Write(row); err != nil {
		return err
	}
	c.writer.Flush()
	return c.writer.Error()
}

func (c *CSVOutput) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

type JSONOutput struct {
	file *os.File
}

func NewJSONOutput(basePath string) (*JSONOutput, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	file, err := os.Create(filepath.Join(basePath, "observations.ndjson"))
	if err != nil {
		return nil, err
	}
	return &JSONOutput{file: file}, nil
}

func (j *JSONOutput) WriteMessage(topic string, msg []byte) error {
	if _, err := j.file.Write(msg); err != nil {
		return err
	}
	_, err := j.file.Write([]byte("\n"))
	return err
}

func (j *JSONOutput) Close() error {
	return j.file.Close()
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// uploadArtifact ships a finished local file to the configured bucket.
func uploadArtifact(factory cloudwriter.CloudWriterFactory, bucket, objectPath, contentType string, data []byte) error {
	w, err := factory.NewWriter(bucket, objectPath, contentType)
	if err != nil {
		return fmt.Errorf("failed to create cloud writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
