package snapshot

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"psharvest/pkg/logger"
	"psharvest/pkg/records"
)

// Header is the column layout written by Save.
var Header = []string{"author", "created_utc", "permalink", "subreddit"}

// Store reads and writes a record set as CSV.
type Store struct {
	path   string
	logger logger.Logger
}

// New creates a store for path.
func New(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{
		path:   path,
		logger: log.WithField("snapshot", path),
	}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the snapshot file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads every well-formed row. Malformed rows are logged with their line
// number and skipped; only failure to open or read the file is an error.
func (s *Store) Load() (*records.Set, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	set, skipped, err := Read(f, s.logger)
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithFields("Snapshot loaded", map[string]interface{}{
		"records": set.Len(),
		"skipped": skipped,
	})
	return set, nil
}

// Read parses CSV from r. Columns are matched by header name, so any column
// order is accepted. It returns the records and the number of rows skipped.
func Read(r io.Reader, log logger.Logger) (*records.Set, int, error) {
	cr := csv.NewReader(stripBOM(r))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	set := records.NewSet()

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return set, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, 0, err
	}

	skipped := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			log.WithError(err).WarnWithFields("Skipping malformed row", map[string]interface{}{
				"line": parseErr.StartLine,
			})
			continue
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read snapshot: %w", err)
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			line, _ := cr.FieldPos(0)
			skipped++
			log.WithError(err).WarnWithFields("Skipping malformed row", map[string]interface{}{
				"line": line,
			})
			continue
		}
		set.Add(rec)
	}
	return set, skipped, nil
}

type columns struct {
	author, created, permalink, subreddit, width int
}

func columnIndex(header []string) (columns, error) {
	idx := map[string]int{}
	for i, name := range header {
		idx[name] = i
	}

	var c columns
	for _, name := range Header {
		if _, ok := idx[name]; !ok {
			return c, fmt.Errorf("snapshot header missing column %q", name)
		}
	}
	c.author = idx["author"]
	c.created = idx["created_utc"]
	c.permalink = idx["permalink"]
	c.subreddit = idx["subreddit"]
	c.width = len(header)
	return c, nil
}

func parseRow(row []string, c columns) (records.Record, error) {
	if len(row) != c.width {
		return records.Record{}, fmt.Errorf("expected %d fields, got %d", c.width, len(row))
	}
	created, err := strconv.ParseUint(row[c.created], 10, 64)
	if err != nil {
		return records.Record{}, fmt.Errorf("invalid created_utc %q: %w", row[c.created], err)
	}
	return records.Record{
		Author:     row[c.author],
		CreatedUTC: created,
		Permalink:  row[c.permalink],
		Subreddit:  row[c.subreddit],
	}, nil
}

// Save writes the set to a temporary file and renames it over the snapshot.
// A record that cannot be encoded is logged and left out.
func (s *Store) Save(set *records.Set) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	written, err := Write(f, set, s.logger)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	s.logger.InfoWithFields("Snapshot saved", map[string]interface{}{
		"records": written,
		"skipped": set.Len() - written,
	})
	return nil
}

// Write encodes the set as CSV in sorted order and returns how many records
// were written. The error is non-nil only when the output itself fails.
func Write(w io.Writer, set *records.Set, log logger.Logger) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}

	written := 0
	for _, r := range set.Sorted() {
		if err := validate(r); err != nil {
			log.WithError(err).WarnWithFields("Skipping record", map[string]interface{}{
				"created_utc": r.CreatedUTC,
				"subreddit":   r.Subreddit,
			})
			continue
		}
		if err := cw.Write([]string{r.Author, strconv.FormatUint(r.CreatedUTC, 10), r.Permalink, r.Subreddit}); err != nil {
			return written, err
		}
		written++
	}

	cw.Flush()
	return written, cw.Error()
}

func validate(r records.Record) error {
	for name, v := range map[string]string{
		"author":    r.Author,
		"permalink": r.Permalink,
		"subreddit": r.Subreddit,
	} {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%s is not valid UTF-8", name)
		}
	}
	return nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	ch, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if ch != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
