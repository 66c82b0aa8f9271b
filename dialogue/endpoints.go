package dialogue

import (
	"net/http"
	"time"

	"github.com/RassulYunussov/ezapi/config"
)

const (
	EndpointGetDialog      = "getDialog"
	EndpointGetStoryParams = "getStoryParams"
)

// Endpoints returns the descriptors of the dialogue backend.
func Endpoints() []config.Endpoint {
	return []config.Endpoint{
		{
			ID:           EndpointGetDialog,
			Path:         "v1/getDialog/{storyId}/{chapterId}",
			Method:       http.MethodPost,
			PayloadType:  "DialogRequest",
			ResponseType: "DialogResponse",
			Timeout:      5 * time.Second,
		},
		{
			ID:           EndpointGetStoryParams,
			Path:         "v1/getGameStorieParams/{storyId}",
			Method:       http.MethodGet,
			PayloadType:  "None",
			ResponseType: "StoryParamsEnvelope",
		},
	}
}

// Register adds the dialogue endpoints that settings does not declare yet.
func Register(settings *config.Settings) {
	declared := make(map[string]struct{}, len(settings.Endpoints))
	for _, e := range settings.Endpoints {
		declared[e.ID] = struct{}{}
	}
	for _, e := range Endpoints() {
		if _, ok := declared[e.ID]; !ok {
			settings.Endpoints = append(settings.Endpoints, e)
		}
	}
}
