package ingest

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Stats are the counts reported by one run over one source.
type Stats struct {
	Source string `json:"source"`

	Scraped  int `json:"scraped"`
	Geocoded int `json:"geocoded"`
	// Resumed counts matches that already had coordinates and skipped the
	// geocoder.
	Resumed int `json:"resumed"`
	Created int `json:"created"`
	Updated int `json:"updated"`

	SkippedNoAddress int `json:"skipped_no_address"`
	SkippedNoGeocode int `json:"skipped_no_geocode"`
	SkippedTimeout   int `json:"skipped_timeout"`

	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}

// Skipped is the number of records dropped because they could not be placed.
func (s Stats) Skipped() int {
	return s.SkippedNoAddress + s.SkippedNoGeocode + s.SkippedTimeout
}

// Add folds o into s. Source is left unchanged.
func (s *Stats) Add(o Stats) {
	s.Scraped += o.Scraped
	s.Geocoded += o.Geocoded
	s.Resumed += o.Resumed
	s.Created += o.Created
	s.Updated += o.Updated
	s.SkippedNoAddress += o.SkippedNoAddress
	s.SkippedNoGeocode += o.SkippedNoGeocode
	s.SkippedTimeout += o.SkippedTimeout
	s.Rejected += o.Rejected
	s.Failed += o.Failed
}

func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("source", s.Source)
	enc.AddInt("scraped", s.Scraped)
	enc.AddInt("geocoded", s.Geocoded)
	enc.AddInt("resumed", s.Resumed)
	enc.AddInt("created", s.Created)
	enc.AddInt("updated", s.Updated)
	enc.AddInt("skipped", s.Skipped())
	enc.AddInt("skipped_no_address", s.SkippedNoAddress)
	enc.AddInt("skipped_no_geocode", s.SkippedNoGeocode)
	enc.AddInt("skipped_timeout", s.SkippedTimeout)
	enc.AddInt("rejected", s.Rejected)
	enc.AddInt("failed", s.Failed)
	return nil
}

var _ zapcore.ObjectMarshaler = Stats{}

func statsField(s Stats) zap.Field { return zap.Object("stats", s) }
