package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const UsersIndexName = "users"

// defineUsersMapping returns the JSON string for the users index mapping.
func defineUsersMapping() (string, error) {
	keywordSubfield := map[string]interface{}{
		"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
	}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":         map[string]interface{}{"type": "keyword"},
				"user_name":  map[string]interface{}{"type": "text", "fields": keywordSubfield},
				"email":      map[string]interface{}{"type": "text", "fields": keywordSubfield},
				"first_name": map[string]interface{}{"type": "text"},
				"last_name":  map[string]interface{}{"type": "text"},
				"role":       map[string]interface{}{"type": "keyword"},
				"is_active":  map[string]interface{}{"type": "boolean"},
				"created_at": map[string]interface{}{"type": "date"},
				"updated_at": map[string]interface{}{"type": "date"},
			},
		},
	}
	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling users mapping to JSON: %w", err)
	}
	return string(mappingBytes), nil
}

// CreateUsersIndexIfNotExists creates the users index with the defined mapping
// if it does not already exist.
func CreateUsersIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	req := esapi.IndicesExistsRequest{
		Index: []string{UsersIndexName},
	}
	res, err := req.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if users index exists", zap.Error(err))
		return fmt.Errorf("error checking if users index exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Users index already exists", zap.String("index_name", UsersIndexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Error("Error checking if users index exists, unexpected status",
			zap.String("status", res.Status()),
			zap.String("index_name", UsersIndexName),
		)
		return fmt.Errorf("error checking if users index exists: status %s", res.Status())
	}

	mappingJSON, err := defineUsersMapping()
	if err != nil {
		log.Error("Failed to define users mapping", zap.Error(err))
		return err
	}

	createReq := esapi.IndicesCreateRequest{
		Index: UsersIndexName,
		Body:  strings.NewReader(mappingJSON),
	}
	createRes, err := createReq.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating users index", zap.Error(err), zap.String("index_name", UsersIndexName))
		return fmt.Errorf("error creating users index %s: %w", UsersIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		log.Error("Failed to create users index",
			zap.String("status", createRes.Status()),
			zap.Any("error_details", decodeErrorBody(createRes)),
			zap.String("index_name", UsersIndexName),
		)
		return fmt.Errorf("failed to create users index %s: status %s", UsersIndexName, createRes.Status())
	}

	log.Info("Users index created successfully", zap.String("index_name", UsersIndexName))
	return nil
}
