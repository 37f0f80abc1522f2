package queries

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/ledger"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/payers"
)

const (
	colPayerCode = "payer_code"
	colPayerName = "payer_name"
	colError     = "error"
	colCount     = "count"
)

var reportColumns = []string{colPayerCode, colPayerName, colError, colCount}

type RejectionReportQuery struct {
	PayerCode string
	Since     time.Time
}

type RejectionRow struct {
	PayerCode string `json:"payer_code"`
	PayerName string `json:"payer_name"`
	Error     string `json:"error"`
	Count     int    `json:"count"`
}

type RejectionReportResult struct {
	Rows  []RejectionRow
	frame dataframe.DataFrame
}

// WriteCSV writes the report with a header row, most frequent rejection first.
func (r RejectionReportResult) WriteCSV(w io.Writer) error {
	if len(r.Rows) == 0 {
		cw := csv.NewWriter(w)
		if err := cw.Write(reportColumns); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}
	return r.frame.WriteCSV(w)
}

type RejectionReportQueryHandler interface {
	Handle(ctx context.Context, query RejectionReportQuery) (result RejectionReportResult, err error)
}

func NewRejectionReportQueryHandler(repo ledger.Repository, directory *payers.Directory) RejectionReportQueryHandler {
	return &rejectionReportQueryHandler{repo: repo, payers: directory}
}

type rejectionReportQueryHandler struct {
	repo   ledger.Repository
	payers *payers.Directory
}

// Handle counts rejected submissions per payer and error message.
func (h *rejectionReportQueryHandler) Handle(ctx context.Context, query RejectionReportQuery) (RejectionReportResult, error) {
	rejected, err := h.repo.List(ctx, ledger.Filter{
		Status:    ledger.StatusRejected,
		PayerCode: query.PayerCode,
		Since:     query.Since,
	})
	if err != nil {
		return RejectionReportResult{}, err
	}

	records := [][]string{{colPayerCode, colPayerName, colError}}
	for _, s := range rejected {
		errs := s.Errors
		if len(errs) == 0 {
			errs = []string{"(no detail)"}
		}
		for _, e := range errs {
			records = append(records, []string{s.PayerCode, h.payers.Name(s.PayerCode), e})
		}
	}
	if len(records) == 1 {
		return RejectionReportResult{Rows: []RejectionRow{}}, nil
	}

	df := dataframe.LoadRecords(records, dataframe.DetectTypes(false))
	if df.Err != nil {
		return RejectionReportResult{}, fmt.Errorf("load rejections: %w", df.Err)
	}

	agg := df.GroupBy(colPayerCode, colPayerName, colError).
		Aggregation([]dataframe.AggregationType{dataframe.Aggregation_COUNT}, []string{colError})
	if agg.Err != nil {
		return RejectionReportResult{}, fmt.Errorf("group rejections: %w", agg.Err)
	}

	counts, err := agg.Col(fmt.Sprintf("%s_%s", colError, dataframe.Aggregation_COUNT)).Int()
	if err != nil {
		return RejectionReportResult{}, fmt.Errorf("read rejection counts: %w", err)
	}
	report := agg.
		Mutate(series.New(counts, series.Int, colCount)).
		Select(reportColumns).
		Arrange(dataframe.RevSort(colCount), dataframe.Sort(colPayerCode), dataframe.Sort(colError))
	if report.Err != nil {
		return RejectionReportResult{}, fmt.Errorf("sort rejections: %w", report.Err)
	}

	rows := make([]RejectionRow, 0, report.Nrow())
	for _, m := range report.Maps() {
		rows = append(rows, RejectionRow{
			PayerCode: m[colPayerCode].(string),
			PayerName: m[colPayerName].(string),
			Error:     m[colError].(string),
			Count:     m[colCount].(int),
		})
	}
	return RejectionReportResult{Rows: rows, frame: report}, nil
}
