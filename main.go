package main

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moalmatry/invoice-scanner/pkg/ocr"
	"github.com/moalmatry/invoice-scanner/pkg/priceparse"
)

var (
	jwtSecret  []byte // loaded from env JWT_SECRET (fallback to dev default)
	accessHash string // bcrypt hash of the access passphrase; empty disables auth

	recognizer ocr.Recognizer
	parser     *priceparse.Parser
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)
	accessHash = os.Getenv("ACCESS_PASSWORD_HASH")
	if accessHash == "" {
		log.Printf("ACCESS_PASSWORD_HASH not set; API auth disabled")
	}

	rec := ocr.NewTesseractRecognizer()
	rec.Adaptive = envBool("OCR_ADAPTIVE")
	recognizer = rec
	parser = priceparse.New(parserConfigFromEnv())

	r := gin.Default()

	setupRoutes(r)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8081"
	}
	r.Run(addr)
}

// parserConfigFromEnv starts from the stock tunables and applies any ceiling
// overrides from the environment.
func parserConfigFromEnv() priceparse.Config {
	cfg := priceparse.DefaultConfig()
	if n := envInt64("PRICE_CEILING_ALL"); n > 0 {
		cfg.CeilingAll = n
	}
	if n := envInt64("PRICE_CEILING_ITEM"); n > 0 {
		cfg.CeilingItem = n
	}
	return cfg
}

func envInt64(key string) int64 {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return 0
	}
	return n
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
