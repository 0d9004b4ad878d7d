package routes

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
)

// ExportSubmissions streams every page of the submission table as CSV,
// with the column labels as header.
func ExportSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := formIdParam(w, r)
		if !ok {
			return
		}

		table, err := app.Reader.ProjectTable(r.Context(), formId, 1, 0)
		if err != nil {
			httpx.WriteError(w, "admin.export", err)
			return
		}

		w.Header().Set("content-type", "text/csv; charset=utf-8")
		w.Header().Set("content-disposition", fmt.Sprintf(`attachment; filename="form-%d-submissions.csv"`, formId))

		out := csv.NewWriter(w)
		header := make([]string, len(table.Columns))
		for i, c := range table.Columns {
			header[i] = c.Label
		}
		out.Write(header)

		record := make([]string, len(table.Columns))
		for page := 1; ; page++ {
			if page > 1 {
				table, err = app.Reader.ProjectTable(r.Context(), formId, page, table.PageSize)
				if err != nil {
					// headers are gone already, all we can do is cut the file short
					log.Errorf("admin.export.page_%d: %s", page, err)
					break
				}
			}
			for _, row := range table.Rows {
				for i, cell := range row {
					record[i] = csvCell(cell)
				}
				out.Write(record)
			}
			if int64(page*table.PageSize) >= table.Total || len(table.Rows) == 0 {
				break
			}
		}

		out.Flush()
		if err = out.Error(); err != nil {
			log.Debugf("admin.export.write: %s", err)
		}
	}
}

func csvCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = csvCell(item)
		}
		return strings.Join(parts, "; ")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
