package dataset

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// PopulationRow is one municipality estimate extracted from the workbook.
type PopulationRow struct {
	Municipality string
	UF           string
	Population   int64
}

// Fetcher downloads IBGE workbooks over FTP with anonymous login.
type Fetcher struct {
	timeout time.Duration
}

// NewFetcher creates a Fetcher. A non-positive timeout defaults to 30s.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{timeout: timeout}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "dataset: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("dataset: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("dataset: empty path in ftp url")
	}

	return host, path, nil
}

// ftpConnReader ties an FTP response to its connection so closing the reader
// also releases the connection.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "dataset: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "dataset: quit ftp connection")
	}
	return nil
}

// Download connects anonymously, retrieves the file, and returns a reader.
// The caller must close it to release the FTP connection.
func (f *Fetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	host, path, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("dataset: ftp connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "dataset: ftp dial")
	}

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "dataset: ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "dataset: ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// DownloadToFile downloads the FTP URL to a local file and returns the bytes
// written.
func (f *Fetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "dataset: create workbook file")
	}
	defer file.Close()

	n, err := io.Copy(file, rc)
	if err != nil {
		return n, eris.Wrap(err, "dataset: write workbook file")
	}

	return n, nil
}

// ParseWorkbook extracts population rows from the workbook at path. Rows
// missing a municipality, UF or parsable population are skipped: the IBGE
// sheets end with footnote rows that never parse.
func ParseWorkbook(path string, cfg SheetConfig) ([]PopulationRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open workbook %s", path)
	}

	sheet, err := getSheet(f, cfg)
	if err != nil {
		return nil, err
	}

	maxCol := cfg.UFCol
	if cfg.NameCol > maxCol {
		maxCol = cfg.NameCol
	}
	if cfg.PopulationCol > maxCol {
		maxCol = cfg.PopulationCol
	}

	var rows []PopulationRow
	skipped := 0
	for i, row := range sheet.Rows {
		if i < cfg.SkipRows {
			continue
		}
		if len(row.Cells) <= maxCol {
			skipped++
			continue
		}

		uf := strings.TrimSpace(row.Cells[cfg.UFCol].String())
		name := strings.TrimSpace(row.Cells[cfg.NameCol].String())
		pop, popErr := parsePopulation(row.Cells[cfg.PopulationCol].String())
		if uf == "" || name == "" || popErr != nil {
			skipped++
			continue
		}

		rows = append(rows, PopulationRow{Municipality: name, UF: uf, Population: pop})
	}

	if len(rows) == 0 {
		return nil, eris.Errorf("dataset: no population rows in sheet (skipped %d)", skipped)
	}
	if skipped > 0 {
		zap.L().Debug("dataset: workbook rows skipped", zap.Int("skipped", skipped), zap.Int("kept", len(rows)))
	}
	return rows, nil
}

func getSheet(f *xlsx.File, cfg SheetConfig) (*xlsx.Sheet, error) {
	if cfg.Name != "" {
		sheet, ok := f.Sheet[cfg.Name]
		if !ok {
			return nil, eris.Errorf("dataset: sheet %q not found", cfg.Name)
		}
		return sheet, nil
	}

	if cfg.Index >= len(f.Sheets) {
		return nil, eris.Errorf("dataset: sheet index %d out of range (workbook has %d sheets)", cfg.Index, len(f.Sheets))
	}

	return f.Sheets[cfg.Index], nil
}

// parsePopulation handles the estimate cell formats: plain integers, dotted
// thousands ("11.451.999") and footnote references ("852971(13)").
func parsePopulation(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.NewReplacer(".", "", ",", "", " ", "", " ", "").Replace(s)
	if s == "" {
		return 0, eris.New("dataset: empty population cell")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, nil
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil {
		return 0, eris.Wrapf(err, "dataset: parse population %q", s)
	}
	return int64(f), nil
}
