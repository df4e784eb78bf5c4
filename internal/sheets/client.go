// Package sheets publishes and reads grids through the Google Sheets API.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/odyssey-erp/ledger-intake/internal/shared"
)

// URLPrefix prefixes a spreadsheet id to form its browser link.
const URLPrefix = "https://docs.google.com/spreadsheets/d/"

// Client wraps the Sheets v4 service.
type Client struct {
	service *gsheets.Service
}

// NewClient authenticates with service-account JSON credentials. Extra
// options are appended after the credentials.
func NewClient(ctx context.Context, credentialsJSON []byte, opts ...option.ClientOption) (*Client, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("sheets: service account credentials must be provided")
	}
	all := append([]option.ClientOption{
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gsheets.SpreadsheetsScope),
	}, opts...)
	return newClient(ctx, all...)
}

// NewClientWithOptions builds a client from raw options; used against
// emulators and test servers.
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	return newClient(ctx, opts...)
}

func newClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &Client{service: service}, nil
}

// Create makes an empty spreadsheet and returns its id.
func (c *Client) Create(ctx context.Context, title string) (string, error) {
	created, err := c.service.Spreadsheets.Create(&gsheets.Spreadsheet{
		Properties: &gsheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", shared.Publish("sheets: create spreadsheet", err)
	}
	return created.SpreadsheetId, nil
}

// WriteRange overwrites cells from rangeStart with rows, row-major.
func (c *Client) WriteRange(ctx context.Context, spreadsheetID, rangeStart string, rows [][]any) error {
	_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, rangeStart, &gsheets.ValueRange{
		Values: rows,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return shared.Publish("sheets: write range", err)
	}
	return nil
}

// ReadRange returns the values in rangeSpec; rows may be ragged.
func (c *Client) ReadRange(ctx context.Context, spreadsheetID, rangeSpec string) ([][]any, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, shared.Publish("sheets: read range", err)
	}
	if resp.Values == nil {
		return [][]any{}, nil
	}
	return resp.Values, nil
}

// URL returns the browser link of a spreadsheet.
func (c *Client) URL(spreadsheetID string) string {
	return URLPrefix + spreadsheetID
}
