/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminserver

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/acronis/go-crawldispatch/log"
)

const contentTypeAppJSON = "application/json"

type errorResponseData struct {
	Error string `json:"error"`
}

func respondError(rw http.ResponseWriter, r *http.Request, statusCode int, msg string) {
	respondCodeAndJSON(rw, r, statusCode, errorResponseData{Error: msg})
}

func respondCodeAndJSON(rw http.ResponseWriter, r *http.Request, statusCode int, respData interface{}) {
	logger := log.GetLoggerFromContext(r.Context())

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(respData); err != nil {
		if logger != nil {
			logger.Error("error while marshaling json for response body", log.Error(err))
		}
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", contentTypeAppJSON)
	rw.WriteHeader(statusCode)
	if _, err := rw.Write(buf.Bytes()); err != nil && logger != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}
