package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
)

// GetOrganization возвращает организацию для дашборда организации.
func (c *Client) GetOrganization(ctx context.Context, token string, id int64) (*model.Organization, error) {
	var resp envelope[model.Organization]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/organizations/%d", id), token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetTeam возвращает команду для дашборда команды.
func (c *Client) GetTeam(ctx context.Context, token string, id int64) (*model.Team, error) {
	var resp envelope[model.Team]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/teams/%d", id), token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetTask возвращает задачу. token — bearer сессии или токен публичной ссылки.
func (c *Client) GetTask(ctx context.Context, token string, id int64) (*model.Task, error) {
	var resp envelope[model.Task]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", id), token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
