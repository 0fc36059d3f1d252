/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminserver

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/acronis/go-crawldispatch/dispatch"
	"github.com/acronis/go-crawldispatch/log"
)

// ErrTargetsNotAccepted is returned by TargetAdder when the crawl is over and submitted targets would never be fetched.
var ErrTargetsNotAccepted = errors.New("crawl is finished, new targets are not accepted")

// TargetAdder accepts targets discovered outside the running crawl.
type TargetAdder interface {
	SubmitTargets(targets ...dispatch.Target) error
	PendingRequests() int
}

type rejectedTarget struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

type addTargetsResponseData struct {
	Accepted int              `json:"accepted"`
	Rejected []rejectedTarget `json:"rejected"`
}

type statusResponseData struct {
	PendingRequests int `json:"pendingRequests"`
}

type healthCheckResponseData struct {
	Components map[string]bool `json:"components"`
}

// addTargetsHandler reads newline-delimited URLs from the request body and enqueues the valid ones.
// Empty lines and lines starting with '#' are skipped.
// Nothing is enqueued if the body can't be read completely.
type addTargetsHandler struct {
	adder       TargetAdder
	maxBodySize int64
}

func (h *addTargetsHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxBodySize > 0 {
		body = http.MaxBytesReader(rw, r.Body, h.maxBodySize)
	}

	var targets []dispatch.Target
	respData := addTargetsResponseData{Rejected: []rejectedTarget{}}
	scanner := bufio.NewScanner(body)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		target, err := dispatch.ParseTarget(line)
		if err != nil {
			respData.Rejected = append(respData.Rejected, rejectedTarget{Line: lineNum, Error: err.Error()})
			continue
		}
		targets = append(targets, target)
	}
	if err := scanner.Err(); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(rw, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body is larger than %d bytes", maxBytesErr.Limit))
			return
		}
		respondError(rw, r, http.StatusBadRequest, fmt.Sprintf("read request body: %v", err))
		return
	}

	if len(targets) != 0 {
		if err := h.adder.SubmitTargets(targets...); err != nil {
			if errors.Is(err, ErrTargetsNotAccepted) {
				respondError(rw, r, http.StatusServiceUnavailable, err.Error())
				return
			}
			respondError(rw, r, http.StatusInternalServerError, "internal error")
			return
		}
	}
	respData.Accepted = len(targets)

	if logger := log.GetLoggerFromContext(r.Context()); logger != nil {
		logger.Info("targets submitted",
			log.Int("accepted", respData.Accepted), log.Int("rejected", len(respData.Rejected)))
	}

	statusCode := http.StatusAccepted
	if respData.Accepted == 0 && len(respData.Rejected) != 0 {
		statusCode = http.StatusBadRequest
	}
	respondCodeAndJSON(rw, r, statusCode, respData)
}

func newStatusHandler(adder TargetAdder) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		respondCodeAndJSON(rw, r, http.StatusOK, statusResponseData{PendingRequests: adder.PendingRequests()})
	}
}

func healthCheckHandler(rw http.ResponseWriter, r *http.Request) {
	respondCodeAndJSON(rw, r, http.StatusOK, healthCheckResponseData{Components: map[string]bool{"dispatcher": true}})
}
