package ui

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gocompare/adapters/table"
	"gocompare/app"
	"gocompare/domain/core"
	"gocompare/internal/errors"
	"gocompare/internal/report"
	"gocompare/ports"
)

// analyzeRequest is accepted as JSON or as a multipart form with a "file"
// part in place of data. Omitted or empty metrics select every column except
// group_column, so the response is never an empty object for a non-empty table.
type analyzeRequest struct {
	Data        string   `json:"data" form:"data"`
	GroupColumn string   `json:"group_column" form:"group_column" binding:"required"`
	Metrics     []string `json:"metrics" form:"metrics"`
	Replicate   int      `json:"replicate" form:"replicate" binding:"omitempty,max=1000000"`
	AllowList   []string `json:"allow_list" form:"allow_list"`
	Format      string   `json:"format" form:"format" binding:"omitempty,oneof=json yaml yml markdown md html"`
}

type inspectRequest struct {
	Data        string `json:"data" form:"data"`
	GroupColumn string `json:"group_column" form:"group_column"`
}

type listRunsQuery struct {
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
	InputHash string `form:"input_hash" binding:"omitempty,hexadecimal,len=64"`
}

// runView is the HTTP shape of a stored run.
type runView struct {
	ID          core.RunID      `json:"id"`
	GroupColumn string          `json:"group_column"`
	Metrics     []string        `json:"metrics"`
	Replicate   int             `json:"replicate"`
	AllowList   []string        `json:"allow_list,omitempty"`
	InputHash   core.Hash       `json:"input_hash"`
	RowCount    int             `json:"row_count"`
	DurationMS  int64           `json:"duration_ms"`
	CreatedAt   time.Time       `json:"created_at"`
	Result      json.RawMessage `json:"result,omitempty"`
}

func newRunView(run *ports.AnalysisRun, withResult bool) runView {
	v := runView{
		ID:          run.ID,
		GroupColumn: run.GroupColumn,
		Metrics:     run.Metrics,
		Replicate:   run.Replicate,
		AllowList:   run.AllowList,
		InputHash:   run.InputHash,
		RowCount:    run.RowCount,
		DurationMS:  run.DurationMS,
		CreatedAt:   run.CreatedAt,
	}
	if withResult && json.Valid([]byte(run.Result)) {
		v.Result = json.RawMessage(run.Result)
	}
	return v
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"history": s.service.HistoryEnabled(),
	})
}

// handleAnalyze runs an analysis. The JSON result is returned verbatim; other
// formats render the same report.
func (s *Server) handleAnalyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBytes)

	var req analyzeRequest
	if err := c.ShouldBind(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	format, err := report.ParseFormat(c.DefaultQuery("format", req.Format))
	if err != nil {
		s.respondError(c, errors.ValidationError(err.Error()))
		return
	}

	analysis := app.AnalysisRequest{
		Data:        req.Data,
		GroupColumn: req.GroupColumn,
		Metrics:     req.Metrics,
		Replicate:   req.Replicate,
		AllowList:   req.AllowList,
	}

	var res *app.RunResult
	file, header, err := formFile(c)
	switch {
	case err != nil:
		s.respondError(c, err)
		return
	case file != nil && table.IsWorkbook(header.Filename):
		defer file.Close()
		tbl, readErr := s.service.Loader().ReadWorkbook(file)
		if readErr != nil {
			s.respondError(c, errors.FromDomain(readErr))
			return
		}
		res, err = s.service.RunTable(c.Request.Context(), tbl, analysis)
	default:
		if file != nil {
			defer file.Close()
			raw, readErr := io.ReadAll(file)
			if readErr != nil {
				s.respondError(c, errors.InvalidInput(fmt.Sprintf("failed to read upload: %v", readErr)))
				return
			}
			analysis.Data = string(raw)
		}
		if analysis.Data == "" {
			s.respondError(c, errors.ValidationError("data or file is required"))
			return
		}
		res, err = s.service.Run(c.Request.Context(), analysis)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("X-Run-ID", res.RunID.String())
	if format == report.FormatJSON {
		c.Data(http.StatusOK, format.ContentType(), []byte(res.Result))
		return
	}
	body, err := report.Encode(res.Report, format)
	if err != nil {
		s.respondError(c, errors.Wrap(err, "failed to render report"))
		return
	}
	c.Data(http.StatusOK, format.ContentType(), body)
}

func (s *Server) handleInspect(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBytes)

	var req inspectRequest
	if err := c.ShouldBind(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	file, _, err := formFile(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if file != nil {
		defer file.Close()
		raw, readErr := io.ReadAll(file)
		if readErr != nil {
			s.respondError(c, errors.InvalidInput(fmt.Sprintf("failed to read upload: %v", readErr)))
			return
		}
		req.Data = string(raw)
	}

	ins, err := s.service.Inspect(req.Data, req.GroupColumn)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ins)
}

func (s *Server) handleListRuns(c *gin.Context) {
	var q listRunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondBindError(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = 20
	}

	var (
		runs []*ports.AnalysisRun
		err  error
	)
	if q.InputHash != "" {
		runs, err = s.service.FindRuns(c.Request.Context(), core.Hash(strings.ToLower(q.InputHash)))
	} else {
		runs, err = s.service.ListRuns(c.Request.Context(), q.Limit, q.Offset)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run, false))
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":   views,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.respondError(c, errors.ValidationError(err.Error()))
		return
	}

	run, err := s.service.GetRun(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRunView(run, true))
}

// formFile returns the optional "file" part of a multipart request.
func formFile(c *gin.Context) (multipart.File, *multipart.FileHeader, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil, nil, nil
	}
	header, err := c.FormFile("file")
	if stderrors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("invalid upload: %v", err))
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("failed to open upload: %v", err))
	}
	return file, header, nil
}

func (s *Server) handleNotFound(c *gin.Context) {
	s.respondError(c, errors.NotFound("route "+c.Request.URL.Path))
}

func (s *Server) respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			"code":  errors.CodeInvalidInput,
		})
		return
	}
	s.respondError(c, errors.ValidationError(err.Error()))
}

func (s *Server) respondError(c *gin.Context, err error) {
	err = errors.FromDomain(err)
	status := errors.HTTPStatus(err)
	_ = c.Error(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", zap.Error(err))
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  errors.GetCode(err),
	})
}
