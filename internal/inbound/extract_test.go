package inbound

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/inbox"
)

func TestExtractText_SMS(t *testing.T) {
	msg := inbox.Message{ID: "m1", Type: "sms", From: "+15550001111", Body: "Your code is 123456"}
	text, ok := ExtractText(msg, nil)
	if !ok {
		t.Fatal("expected ok=true for sms")
	}
	if text != "Your code is 123456" {
		t.Fatalf("got %q", text)
	}
}

func TestExtractText_UntypedDefaultsToSMS(t *testing.T) {
	text, ok := ExtractText(inbox.Message{Body: "hello"}, nil)
	if !ok || text != "hello" {
		t.Fatalf("got (%q, %v)", text, ok)
	}
}

func TestExtractText_EmptyBody(t *testing.T) {
	if _, ok := ExtractText(inbox.Message{Type: "sms", Body: "  "}, nil); ok {
		t.Fatal("expected ok=false for blank sms")
	}
}

func TestExtractText_MMS(t *testing.T) {
	msg := inbox.Message{
		Type:  "mms",
		Body:  "look",
		Media: &inbox.MediaContent{MimeType: "image/png", URL: "https://example.com/p.png"},
	}
	text, ok := ExtractText(msg, nil)
	if !ok {
		t.Fatal("expected ok=true for mms")
	}
	want := "[mms] look (image/png) https://example.com/p.png"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}

func TestExtractText_MMSNoMedia(t *testing.T) {
	text, _ := ExtractText(inbox.Message{Type: "MMS"}, nil)
	if text != "[mms]" {
		t.Fatalf("got %q", text)
	}
}

func TestExtractText_Unsupported(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	_, ok := ExtractText(inbox.Message{ID: "m9", Type: "rcs", From: "+1"}, zap.New(core))
	if ok {
		t.Fatal("expected ok=false for unsupported type")
	}
	if logs.FilterMessage("unsupported message type").Len() != 1 {
		t.Fatal("expected unsupported type to be logged")
	}
}
