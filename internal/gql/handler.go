package gql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"
)

type postData struct {
	Query     string                 `json:"query"`
	Operation string                 `json:"operation"`
	Variables map[string]interface{} `json:"variables"`
}

// Handler executes queries and mutations posted over HTTP.
type Handler struct {
	schema graphql.Schema
	logger *logrus.Entry
}

func NewHandler(schema graphql.Schema, logger *logrus.Entry) *Handler {
	return &Handler{
		schema: schema,
		logger: logger.WithField("component", "gql.http"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var p postData

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.logger.Warnf("rejecting unreadable request: %v", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  p.Query,
		VariableValues: p.Variables,
		OperationName:  p.Operation,
		Context:        r.Context(),
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Errorf("writing response: %v", err)
	}
}
