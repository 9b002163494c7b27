package api

import (
	"encoding/json"
	stdErrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/task"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools"
)

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, xerrors.CodeInitializationFailure, "工具注册表未初始化")
		return
	}
	writeJSON(w, http.StatusOK, s.registry.List())
}

// handleInvokeTool 以请求体作为工具输入同步执行。错误信封同样以 200 返回，
// 仅未注册的工具返回 404。
func (s *Server) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, xerrors.CodeInitializationFailure, "工具注册表未初始化")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, xerrors.CodeInvalidInput, "请求体过大")
		return
	}
	name := chi.URLParam(r, "name")
	result := s.registry.Invoke(r.Context(), name, body)

	status := http.StatusOK
	if result.Code == tools.CodeToolNotFound {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(result.Output)
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, xerrors.CodeInitializationFailure, "作业服务未启用")
		return
	}
	var req task.Request
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, xerrors.CodeInvalidInput, "请求体解析失败")
		return
	}
	job, err := s.jobs.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, xerrors.CodeInitializationFailure, "作业服务未启用")
		return
	}
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, xerrors.CodeInitializationFailure, "作业服务未启用")
		return
	}
	opts, err := listOptionsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, xerrors.CodeInvalidInput, err.Error())
		return
	}
	jobs, err := s.jobs.List(r.Context(), opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, xerrors.CodeInitializationFailure, "作业服务未启用")
		return
	}
	opts, err := listOptionsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, xerrors.CodeInvalidInput, err.Error())
		return
	}
	stats, err := s.jobs.Stats(r.Context(), opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	if s.calls == nil {
		writeError(w, http.StatusServiceUnavailable, xerrors.CodeInitializationFailure, "调用记录未启用")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := s.calls.ListLatest(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func listOptionsFromQuery(r *http.Request) ([]task.ListOption, error) {
	query := r.URL.Query()
	var opts []task.ListOption
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, stdErrors.New("limit 必须是整数")
		}
		opts = append(opts, task.WithLimit(limit))
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return nil, stdErrors.New("offset 必须是整数")
		}
		opts = append(opts, task.WithOffset(offset))
	}
	if raw := query.Get("status"); raw != "" {
		var statuses []task.Status
		for _, part := range strings.Split(raw, ",") {
			status := task.Status(strings.ToLower(strings.TrimSpace(part)))
			if !task.IsValidStatus(status) {
				return nil, stdErrors.New("未知的作业状态: " + part)
			}
			statuses = append(statuses, status)
		}
		opts = append(opts, task.WithStatuses(statuses...))
	}
	if tool := query.Get("tool"); tool != "" {
		opts = append(opts, task.WithTool(tool))
	}
	if query.Get("order") == "asc" {
		opts = append(opts, task.WithSortOrder(task.SortByUpdatedAsc))
	}
	return opts, nil
}
