package reconciler

import (
	"context"
	"strings"

	"github.com/Farcas-Consult/rams-sub000/pkg/httpclient"
	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
)

const liveViewPath = "/api/v1/live-view"

// HTTPPuller fetches snapshots from a rams server
type HTTPPuller struct {
	client *httpclient.Client
	url    string
}

func NewHTTPPuller(client *httpclient.Client, serverURL string) *HTTPPuller {
	return &HTTPPuller{
		client: client,
		url:    strings.TrimRight(serverURL, "/") + liveViewPath,
	}
}

func (p *HTTPPuller) Pull(ctx context.Context) ([]liveview.Row, error) {
	var rows []liveview.Row
	if err := p.client.GetJSON(ctx, p.url, &rows); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].LastSeenAt = models.NormalizeTimestamp(rows[i].LastSeenAt)
	}
	return rows, nil
}
