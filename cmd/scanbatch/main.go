package main

import (
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moalmatry/invoice-scanner/pkg/ocr"
	"github.com/moalmatry/invoice-scanner/pkg/priceparse"
)

var verbose bool

// Main: scans a directory of receipt images, runs OCR + price extraction on
// each and emits one CSV row per file. Optional watch mode keeps processing
// files as they appear. Nothing is stored anywhere else.
func main() {
	dirFlag := flag.String("dir", ".", "directory to scan for receipt images")
	outFlag := flag.String("out", "", "CSV output path (default stdout)")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	dryRun := flag.Bool("dry-run", false, "List candidate files without running OCR")
	adaptive := flag.Bool("adaptive", false, "Use adaptive thresholding during preprocessing")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()

	files := listImageFiles(*dirFlag)
	if *dryRun {
		log.Printf("Dry-run: %d candidate files in %s", len(files), *dirFlag)
		for _, f := range files {
			log.Printf("  %s", f)
		}
		return
	}

	rec := ocr.NewTesseractRecognizer()
	rec.Adaptive = *adaptive
	b := &batchScanner{
		dir:    *dirFlag,
		rec:    rec,
		parser: priceparse.New(priceparse.Config{}),
	}

	out := os.Stdout
	if *outFlag != "" {
		f, err := os.Create(*outFlag)
		if err != nil {
			log.Fatalf("create %s: %v", *outFlag, err)
		}
		defer f.Close()
		out = f
	}
	b.w = csv.NewWriter(out)
	defer b.w.Flush()
	if err := b.w.Write(csvHeader()); err != nil {
		log.Fatalf("write header: %v", err)
	}

	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	if *watch {
		if err := b.watchDirectory(files, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
		return
	}
	b.runWorkerPool(files, effectiveWorkers(*workers))
}

func effectiveWorkers(w int) int {
	if w > 0 {
		return w
	}
	return runtime.NumCPU()
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

type batchScanner struct {
	dir    string
	rec    ocr.Recognizer
	parser *priceparse.Parser

	mu sync.Mutex // guards w
	w  *csv.Writer
}

// processSingleFile scans one receipt image and writes its CSV row.
func (b *batchScanner) processSingleFile(name string) {
	path := filepath.Join(b.dir, name)
	lines, err := b.rec.Recognize(path)
	if err != nil {
		log.Printf("skip %s: %v", name, err)
		return
	}
	res := b.parser.ParseLines(lines)
	logV("%s: total=%s prices=%d items=%d", name, res.Total, len(res.AllPrices), len(res.ItemPrices))

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.w.Write(buildRecord(name, res)); err != nil {
		log.Printf("write row for %s: %v", name, err)
		return
	}
	b.w.Flush()
}

func csvHeader() []string {
	return []string{"file", "total", "all_prices", "item_prices", "labeled_prices"}
}

func buildRecord(name string, res priceparse.Result) []string {
	return []string{
		name,
		res.Total,
		joinAmounts(res.AllPrices),
		joinAmounts(res.ItemPrices),
		joinLabeled(res.LabeledPrices),
	}
}

func joinAmounts(ms []priceparse.Money) string {
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, ";")
}

func joinLabeled(las []priceparse.LabeledAmount) string {
	parts := make([]string, 0, len(las))
	for _, la := range las {
		parts = append(parts, string(la.Label)+"="+la.Amount.String())
	}
	return strings.Join(parts, ";")
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".tif", ".tiff", ".bmp":
		return true
	}
	return false
}

// watchDirectory processes the initial listing, then keeps feeding newly
// created files through the worker pool. Events are debounced so half-written
// files are not picked up.
func (b *batchScanner) watchDirectory(initial []string, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(b.dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", b.dir)

	fileCh := make(chan string, 256)
	go func() {
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	go b.runWorkerPool(initial, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

// runWorkerPool fans filenames out to a fixed pool. With an extra channel the
// pool stays alive for watch events; otherwise it drains and returns.
func (b *batchScanner) runWorkerPool(initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				b.processSingleFile(name)
			}
		}()
	}
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}
