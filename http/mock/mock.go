// Package mock provides helpers for testing the HTTP handlers.
package mock

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/datarhei/settings/encoding/json"
	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/http/api"
	"github.com/datarhei/settings/http/errorhandler"
	"github.com/datarhei/settings/http/validator"
	"github.com/datarhei/settings/io/storage"
	"github.com/datarhei/settings/store"

	"github.com/invopop/jsonschema"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

// DummyEngine returns an engine on top of a memory storage. Autosave is
// disabled and retries are fast.
func DummyEngine(t require.TestingT) (engine.Engine, storage.Adapter) {
	adapter := storage.NewMemory()

	s, err := store.NewJSON(store.Config{
		Storage: adapter,
	})
	require.NoError(t, err)

	e, err := engine.New(engine.Config{
		Store:          s,
		RetryBaseDelay: time.Millisecond,
		Now: func() time.Time {
			return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
		},
	})
	require.NoError(t, err)

	return e, adapter
}

func DummyEcho() *echo.Echo {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = errorhandler.HTTPErrorHandler
	router.Logger.SetOutput(io.Discard)
	router.Validator = validator.New()

	return router
}

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Header  http.Header
	Raw     []byte
	Data    interface{}
}

func Request(t require.TestingT, httpstatus int, router *echo.Echo, method, path string, data io.Reader) *Response {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, data)
	if data != nil {
		req.Header.Add("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)

	response := CheckResponse(t, w.Result())

	require.Equal(t, httpstatus, w.Code, string(response.Raw))

	return response
}

// RequestJSON sends the JSON encoding of data
func RequestJSON(t require.TestingT, httpstatus int, router *echo.Echo, method, path string, data interface{}) *Response {
	body, err := json.Marshal(data)
	require.NoError(t, err)

	return Request(t, httpstatus, router, method, path, bytes.NewReader(body))
}

func CheckResponse(t require.TestingT, res *http.Response) *Response {
	response := &Response{
		Code:   res.StatusCode,
		Header: res.Header,
	}

	body, err := io.ReadAll(res.Body)
	require.Equal(t, nil, err)

	res.Body.Close()

	response.Raw = body

	if strings.Contains(res.Header.Get("Content-Type"), "application/json") {
		err := json.Unmarshal(body, &response.Data)
		require.Equal(t, nil, err)
	} else {
		response.Data = body
	}

	if response.Code >= http.StatusBadRequest {
		e := api.Error{}
		if err := json.Unmarshal(body, &e); err == nil {
			response.Message = e.Message
		}
	}

	return response
}

// Validate checks that data complies with the JSON schema of datatype.
func Validate(t require.TestingT, datatype, data interface{}) bool {
	schema, err := jsonschema.Reflect(datatype).MarshalJSON()
	require.NoError(t, err)

	schemaLoader := gojsonschema.NewStringLoader(string(schema))
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	require.Equal(t, nil, err)
	require.Equal(t, true, result.Valid(), result.Errors())

	return true
}
