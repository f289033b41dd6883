package partition

import "go.uber.org/zap/zapcore"

// ServerReport counts what an operation did on one server.
type ServerReport struct {
	Server   string `json:"server"`
	Archived int    `json:"archived"`
	Deleted  int    `json:"deleted"`
	Kept     int    `json:"kept"`
	Border   int    `json:"border"`
	Unowned  int    `json:"unowned"`
	Warnings int    `json:"warnings"`
}

func (s *ServerReport) add(o ServerReport) {
	s.Archived += o.Archived
	s.Deleted += o.Deleted
	s.Kept += o.Kept
	s.Border += o.Border
	s.Unowned += o.Unowned
	s.Warnings += o.Warnings
}

func (s ServerReport) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if s.Server != "" {
		enc.AddString("server", s.Server)
	}
	enc.AddInt("archived", s.Archived)
	enc.AddInt("deleted", s.Deleted)
	enc.AddInt("kept", s.Kept)
	enc.AddInt("border", s.Border)
	enc.AddInt("unowned", s.Unowned)
	enc.AddInt("warnings", s.Warnings)
	return nil
}

type Report struct {
	Operation string         `json:"operation"`
	Servers   []ServerReport `json:"servers"`
}

func (r Report) Totals() ServerReport {
	var t ServerReport
	for _, s := range r.Servers {
		t.add(s)
	}
	return t
}
