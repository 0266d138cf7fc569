// Package sweeplog persists completed detection sweeps as two append-only
// text files, one line per sweep: datax.txt holds the x values and
// datay.txt the y values, each written as "v1,v2,...,vn,\n".
package sweeplog

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"sonar-radar.klederson.com/internal/config"
	"sonar-radar.klederson.com/internal/radar"
)

// ErrMismatch is returned by Read when the two files disagree.
var ErrMismatch = errors.New("sweep log x and y files do not line up")

// Log appends sweep records under a directory.
type Log struct {
	dir    string
	logger logrus.FieldLogger

	mu sync.Mutex
}

// New returns a Log writing into dir. The files are created on first
// append.
func New(dir string, logger logrus.FieldLogger) *Log {
	if dir == "" {
		dir = config.DefaultLogDir
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Log{dir: dir, logger: logger}
}

// Paths returns the x and y file paths.
func (l *Log) Paths() (string, string) {
	return filepath.Join(l.dir, config.SweepLogFileX), filepath.Join(l.dir, config.SweepLogFileY)
}

// Append writes one sweep.
func (l *Log) Append(points []radar.Point) error {
	var xs, ys strings.Builder
	for _, p := range points {
		xs.WriteString(FormatFloat(p.X))
		xs.WriteByte(',')
		ys.WriteString(FormatFloat(p.Y))
		ys.WriteByte(',')
	}
	xs.WriteByte('\n')
	ys.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	xPath, yPath := l.Paths()
	xf, err := openLog(xPath)
	if err != nil {
		return err
	}
	defer xf.Close()
	yf, err := openLog(yPath)
	if err != nil {
		return err
	}
	defer yf.Close()

	// x and y lines must stay paired, so a failed y write takes the x line
	// back out.
	info, err := xf.Stat()
	if err != nil {
		return fmt.Errorf("stat sweep log: %w", err)
	}
	if _, err := xf.WriteString(xs.String()); err != nil {
		_ = xf.Truncate(info.Size())
		return fmt.Errorf("write sweep log %s: %w", filepath.Base(xPath), err)
	}
	if _, err := yf.WriteString(ys.String()); err != nil {
		if terr := xf.Truncate(info.Size()); terr != nil {
			l.logger.WithError(terr).Error("sweep log x and y files are out of step")
		}
		return fmt.Errorf("write sweep log %s: %w", filepath.Base(yPath), err)
	}
	if err := xf.Close(); err != nil {
		return fmt.Errorf("close sweep log: %w", err)
	}
	if err := yf.Close(); err != nil {
		return fmt.Errorf("close sweep log: %w", err)
	}
	l.logger.WithFields(logrus.Fields{"points": len(points), "dir": l.dir}).Debug("sweep appended")
	return nil
}

func openLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sweep log: %w", err)
	}
	return f, nil
}

// FormatFloat renders v the way the offline consumer writes and reads
// floats: shortest round-trip digits, always with a fractional part or an
// exponent.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// ParseLine parses one comma-terminated line of values.
func ParseLine(line string) ([]float64, error) {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ",")
	if line == "" {
		return nil, nil
	}
	fields := strings.Split(line, ",")
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// Read loads every sweep recorded in dir.
func Read(dir string) ([]radar.Record, error) {
	xs, err := readLines(filepath.Join(dir, config.SweepLogFileX))
	if err != nil {
		return nil, err
	}
	ys, err := readLines(filepath.Join(dir, config.SweepLogFileY))
	if err != nil {
		return nil, err
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d x lines, %d y lines", ErrMismatch, len(xs), len(ys))
	}

	records := make([]radar.Record, 0, len(xs))
	for i := range xs {
		x, err := ParseLine(xs[i])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", config.SweepLogFileX, i+1, err)
		}
		y, err := ParseLine(ys[i])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", config.SweepLogFileY, i+1, err)
		}
		if len(x) != len(y) {
			return nil, fmt.Errorf("%w: line %d has %d x and %d y values", ErrMismatch, i+1, len(x), len(y))
		}
		rec := make(radar.Record, len(x))
		for j := range x {
			rec[j] = radar.Point{X: x[j], Y: y[j]}
		}
		records = append(records, rec)
	}
	return records, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sweep log: %w", err)
	}
	defer f.Close()

	var lines []string
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scan.Scan() {
		lines = append(lines, scan.Text())
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return lines, nil
}
