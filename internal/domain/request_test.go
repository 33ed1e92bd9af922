package domain

import (
	"errors"
	"testing"
)

func TestResearchRequest_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ResearchRequest
		want ResearchRequest
	}{
		{
			name: "query falls back to topic",
			in:   ResearchRequest{Topic: "solar storage"},
			want: ResearchRequest{Topic: "solar storage", Query: "solar storage", MaxSources: DefaultMaxSources, OutputFormat: FormatHTML},
		},
		{
			name: "topic falls back to query",
			in:   ResearchRequest{Query: "grid batteries"},
			want: ResearchRequest{Topic: "grid batteries", Query: "grid batteries", MaxSources: DefaultMaxSources, OutputFormat: FormatHTML},
		},
		{
			name: "explicit values kept",
			in:   ResearchRequest{Topic: "a", Query: "b", MaxSources: 9, OutputFormat: FormatPDF},
			want: ResearchRequest{Topic: "a", Query: "b", MaxSources: 9, OutputFormat: FormatPDF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			if tt.in != tt.want {
				t.Errorf("got %+v, want %+v", tt.in, tt.want)
			}
		})
	}
}

func TestResearchRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		in        ResearchRequest
		wantField string
	}{
		{"empty request", ResearchRequest{}, "topic"},
		{"negative max sources", ResearchRequest{Topic: "x", MaxSources: -1}, "max_sources"},
		{"bad format", ResearchRequest{Topic: "x", OutputFormat: "docx"}, "output_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, ve.Field)
			}
			if !IsValidation(err) {
				t.Error("IsValidation should report true")
			}
		})
	}

	ok := ResearchRequest{Topic: "renewables", MaxSources: 3, OutputFormat: FormatMarkdown}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}
