package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"profit-dashboard/internal/errors"
	"profit-dashboard/internal/models"
	"profit-dashboard/internal/services"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ReportQuery is the selection as it arrives on the wire.
type ReportQuery struct {
	Mode    string `json:"mode" validate:"omitempty,oneof=description code"`
	Product string `json:"product" validate:"required,max=200"`
	Start   string `json:"start" validate:"required"`
	End     string `json:"end" validate:"required"`
}

func reportQueryFromURL(r *http.Request) ReportQuery {
	q := r.URL.Query()
	return ReportQuery{
		Mode:    strings.ToLower(q.Get("mode")),
		Product: q.Get("product"),
		Start:   q.Get("start"),
		End:     q.Get("end"),
	}
}

// Selection validates q and converts it into a pipeline selection.
func (q ReportQuery) Selection() (models.Selection, error) {
	if err := validate.Struct(q); err != nil {
		return models.Selection{}, errors.ValidationWrap(err, validationMessage(err))
	}

	start, err := models.ParseYearMonth(q.Start)
	if err != nil {
		return models.Selection{}, errors.BadRequestWrap(err, "start must look like 2024-04")
	}
	end, err := models.ParseYearMonth(q.End)
	if err != nil {
		return models.Selection{}, errors.BadRequestWrap(err, "end must look like 2024-04")
	}

	mode := models.SearchMode(q.Mode)
	if mode == "" {
		mode = models.ModeDescription
	}
	return models.Selection{Mode: mode, Product: q.Product, Start: start, End: end}, nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid report query"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid report query: " + strings.Join(fields, ", ")
}

// dashboardSignals mirrors the data-signals declared on the dashboard page.
type dashboardSignals struct {
	Mode        string `json:"mode"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

func (s dashboardSignals) query() ReportQuery {
	q := ReportQuery{Mode: strings.ToLower(s.Mode), Product: s.Description, Start: s.Start, End: s.End}
	if q.Mode == string(models.ModeCode) {
		q.Product = s.Code
	}
	return q
}

// pipelineError maps a pipeline halt onto the API error envelope.
func pipelineError(err error) error {
	msg := services.HaltMessage(err)
	switch {
	case services.IsEmptySelection(err):
		return errors.NotFoundWrap(err, msg)
	case msg != "":
		return errors.ValidationWrap(err, msg)
	default:
		return errors.InternalWrap(err, "report failed")
	}
}
