package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/erazemk/msds/internal/model"
)

// Credentials identify the caller on authenticated endpoints.
type Credentials struct {
	Username  string
	AuthToken string
}

func (c Credentials) payload() Payload {
	return Payload{
		model.FieldUsername:  c.Username,
		model.FieldAuthToken: c.AuthToken,
	}
}

// LoginRequest is the body of a Login call. AuthToken is generated by the
// caller and becomes the session token once the server accepts it.
type LoginRequest struct {
	Username  string
	Password  string
	AuthToken string
	Timestamp int64
}

// Login authenticates the user. A rejected login is an application error.
func (c *Client) Login(ctx context.Context, req LoginRequest) error {
	resp := c.wait(ctx, model.EndpointLogin, Payload{
		model.FieldUsername:  req.Username,
		model.FieldPassword:  req.Password,
		model.FieldAuthToken: req.AuthToken,
		model.FieldTimestamp: strconv.FormatInt(req.Timestamp, 10),
	})
	return resp.Err
}

// accountFields maps response fields onto AccountInfo.
func accountFields(info *model.AccountInfo) []struct {
	name string
	dst  *string
} {
	return []struct {
		name string
		dst  *string
	}{
		{"firstName", &info.FirstName},
		{"lastName", &info.LastName},
		{"gender", &info.Gender},
		{"DOB", &info.DOB},
		{"rank", &info.Rank},
		{"contact", &info.Contact},
		{"address", &info.Address},
	}
}

// UserInfo fetches the account profile. Every profile field must be present
// and a string or number; numbers keep their literal text.
func (c *Client) UserInfo(ctx context.Context, creds Credentials) (model.AccountInfo, error) {
	ep := model.EndpointUserInfo
	resp := c.wait(ctx, ep, creds.payload())
	if resp.Err != nil {
		return model.AccountInfo{}, resp.Err
	}

	var info model.AccountInfo
	for _, f := range accountFields(&info) {
		raw, ok := resp.Fields[f.name]
		if !ok || isNull(raw) {
			return model.AccountInfo{}, decodeError(ep, nil, "missing field %s", f.name)
		}
		var text model.Text
		if err := json.Unmarshal(raw, &text); err != nil {
			return model.AccountInfo{}, decodeError(ep, err, "decoding field %s", f.name)
		}
		*f.dst = string(text)
	}
	return info, nil
}

// Inventory fetches the user's holdings. The response carries two parallel
// arrays, itemName and quantity, which must have equal length. Elements are
// strings or numbers; a null element is a decode error.
func (c *Client) Inventory(ctx context.Context, creds Credentials) ([]model.InventoryItem, error) {
	ep := model.EndpointInventory
	resp := c.wait(ctx, ep, creds.payload())
	if resp.Err != nil {
		return nil, resp.Err
	}

	var names []model.Text
	if err := decodeField(resp.Fields, model.FieldItemName, &names); err != nil {
		return nil, decodeError(ep, err, "decoding %s", model.FieldItemName)
	}
	var quantities []model.Quantity
	if err := decodeField(resp.Fields, model.FieldQuantity, &quantities); err != nil {
		return nil, decodeError(ep, err, "decoding %s", model.FieldQuantity)
	}
	if len(names) != len(quantities) {
		return nil, decodeError(ep, nil, "%d item names but %d quantities", len(names), len(quantities))
	}

	items := make([]model.InventoryItem, len(names))
	for i := range names {
		items[i] = model.InventoryItem{Name: string(names[i]), Quantity: quantities[i]}
	}
	return items, nil
}

// NewRequest files a request for quantity units of item. The quantity is sent
// as text exactly as given.
func (c *Client) NewRequest(ctx context.Context, creds Credentials, item string, quantity model.Quantity) error {
	p := creds.payload()
	p[model.FieldItemName] = item
	p[model.FieldQuantity] = string(quantity)
	return c.wait(ctx, model.EndpointNewRequest, p).Err
}

// SubmitLog records an activity description. Only transport failures are
// reported; the response body is never inspected.
func (c *Client) SubmitLog(ctx context.Context, creds Credentials, description string) error {
	p := creds.payload()
	p[model.FieldActivityDescription] = description
	return c.wait(ctx, model.EndpointSubmitLog, p).Err
}

// wait sends the request and blocks for its response or ctx.
func (c *Client) wait(ctx context.Context, ep model.Endpoint, payload Payload) Response {
	select {
	case resp := <-c.Send(ctx, ep, payload):
		return resp
	case <-ctx.Done():
		return Response{Endpoint: ep, Err: transportError(ep, ctx.Err(), "waiting for response")}
	}
}

// decodeField decodes a required field. Absent and null both count as missing.
func decodeField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return fmt.Errorf("missing field %s", name)
	}
	return json.Unmarshal(raw, dst)
}
