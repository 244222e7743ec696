package ocr

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// ErrNoText is returned when recognition ran but produced no usable text,
// e.g. a logo or blank photo.
var ErrNoText = errors.New("no text recognized")

// Recognizer converts a captured image into ordered lines of text, top to
// bottom as detected. Implementations report recognition failure through the
// error; downstream parsing never sees a partial result.
type Recognizer interface {
	Recognize(path string) ([]string, error)
}

// Characters worth keeping for receipt text: amounts, the currency mark, and
// enough of the alphabet for labels like "Subtotal" or "Tax".
const receiptWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$.,:%#()/- "

// TesseractRecognizer runs Tesseract over a lightly preprocessed copy of the
// image. The zero value is not usable; construct with NewTesseractRecognizer.
type TesseractRecognizer struct {
	Language  string
	Whitelist string
	// Adaptive switches preprocessing from a global threshold to a mean
	// adaptive one, which copes better with unevenly lit photos.
	Adaptive bool
}

func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{
		Language:  "eng",
		Whitelist: receiptWhitelist,
	}
}

func (t *TesseractRecognizer) Recognize(path string) ([]string, error) {
	src := path
	if tmp, err := preprocessToTemp(path, t.Adaptive); err == nil {
		src = tmp
		defer os.Remove(tmp)
	} else {
		log.Printf("ocr: preprocess failed for %s, using original: %v", path, err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage(t.Language)
	if t.Whitelist != "" {
		_ = client.SetWhitelist(t.Whitelist)
	}
	client.SetImage(src)
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	log.Printf("ocr: %s snippet=%q", path, snippet(text, 160))

	lines := SplitLines(text)
	if len(lines) == 0 {
		return nil, ErrNoText
	}
	return lines, nil
}

// SplitLines breaks raw OCR output into trimmed, non-empty lines, preserving
// reading order.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// snippet shortens text for logging.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
