package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/relieflink/relief-gateway/internal/domain"
)

var (
	ErrTimeout      = errors.New("downstream_timeout")
	ErrUnavailable  = errors.New("downstream_unavailable")
	ErrNotFound     = errors.New("resource_not_found")
	ErrUnauthorized = errors.New("unauthorized")
)

type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

func decodeError(resp *http.Response) error {
	var apiErr domain.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Code != "" {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Code:       apiErr.Error.Code,
			Message:    apiErr.Error.Message,
		}
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		Code:       "downstream_error",
		Message:    fmt.Sprintf("unexpected status: %d", resp.StatusCode),
	}
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// ReliefClient is the typed boundary to the relief backend. It holds no state
// and applies no retries: a failed call surfaces once and the user retries
// explicitly.
type ReliefClient struct {
	BaseURL string
	HTTP    *Client
}

func NewReliefClient(baseURL string, httpClient *Client) *ReliefClient {
	return &ReliefClient{
		BaseURL: baseURL,
		HTTP:    httpClient,
	}
}

func (c *ReliefClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.HTTP.Get(ctx, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *ReliefClient) sendJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	resp, err := c.HTTP.DoWithBody(ctx, method, c.BaseURL+path, reader, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// boolResult is the backend's acknowledgment shape for mutations.
func (c *ReliefClient) sendForBool(ctx context.Context, method, path string, body any) (bool, error) {
	var wrapper dataEnvelope[bool]
	if err := c.sendJSON(ctx, method, path, body, &wrapper); err != nil {
		return false, err
	}
	return wrapper.Data, nil
}

// ---- users ----

// GetUser fetches a user by email. Returns ErrNotFound when absent.
func (c *ReliefClient) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var wrapper dataEnvelope[domain.User]
	if err := c.getJSON(ctx, "/v1/users/"+url.PathEscape(email), &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.Data, nil
}

func (c *ReliefClient) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	var wrapper dataEnvelope[[]domain.User]
	if err := c.getJSON(ctx, "/v1/users", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

func (c *ReliefClient) RegisterUser(ctx context.Context, user domain.User) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/users", user)
}

func (c *ReliefClient) UpdateUser(ctx context.Context, email string, user domain.User) (bool, error) {
	return c.sendForBool(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(email), user)
}

func (c *ReliefClient) DeleteUser(ctx context.Context, email string) (bool, error) {
	return c.sendForBool(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(email), nil)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *ReliefClient) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/auth/verify-password", credentials{Email: email, Password: password})
}

// IsAdmin is the authoritative privilege check; session gating depends on it
// rather than the user record's own flag.
func (c *ReliefClient) IsAdmin(ctx context.Context, email string) (bool, error) {
	var wrapper dataEnvelope[bool]
	if err := c.getJSON(ctx, "/v1/users/"+url.PathEscape(email)+"/admin", &wrapper); err != nil {
		return false, err
	}
	return wrapper.Data, nil
}

func (c *ReliefClient) OrganizationLogin(ctx context.Context, email, password string) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/auth/organization-login", credentials{Email: email, Password: password})
}

func (c *ReliefClient) AdminLogin(ctx context.Context, email, password string) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/auth/admin-login", credentials{Email: email, Password: password})
}

// ---- help requests ----

func (c *ReliefClient) CreateHelpRequest(ctx context.Context, req domain.HelpRequest) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/requests", req)
}

func (c *ReliefClient) GetUserRequests(ctx context.Context, email string) ([]domain.HelpRequest, error) {
	var wrapper dataEnvelope[[]domain.HelpRequest]
	if err := c.getJSON(ctx, "/v1/users/"+url.PathEscape(email)+"/requests", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

func (c *ReliefClient) GetAllRequests(ctx context.Context) ([]domain.HelpRequest, error) {
	var wrapper dataEnvelope[[]domain.HelpRequest]
	if err := c.getJSON(ctx, "/v1/requests", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

// GetNearbyRequests returns pending requests sorted by distance from the
// given point; sorting happens on the backend.
func (c *ReliefClient) GetNearbyRequests(ctx context.Context, lat, lon string) ([]domain.HelpRequest, error) {
	q := url.Values{"lat": {lat}, "lon": {lon}}
	var wrapper dataEnvelope[[]domain.HelpRequest]
	if err := c.getJSON(ctx, "/v1/requests/nearby?"+q.Encode(), &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

func (c *ReliefClient) CancelHelpRequest(ctx context.Context, victimID, timestamp string) (bool, error) {
	path := "/v1/requests/" + url.PathEscape(victimID) + "/" + url.PathEscape(timestamp) + "/cancel"
	return c.sendForBool(ctx, http.MethodPost, path, nil)
}

type verifyRequestBody struct {
	Note     string `json:"verification_note"`
	Verifier string `json:"verified_by"`
}

func (c *ReliefClient) VerifyHelpRequest(ctx context.Context, victimID, timestamp, note, verifierEmail string) (bool, error) {
	path := "/v1/requests/" + url.PathEscape(victimID) + "/" + url.PathEscape(timestamp) + "/verify"
	return c.sendForBool(ctx, http.MethodPost, path, verifyRequestBody{Note: note, Verifier: verifierEmail})
}

type assignVolunteerBody struct {
	VolunteerEmail string `json:"volunteer_email"`
}

// AssignVolunteerToRequest takes the composite request key (victim_id +
// timestamp) used by the backend.
func (c *ReliefClient) AssignVolunteerToRequest(ctx context.Context, requestKey, volunteerEmail string) (bool, error) {
	path := "/v1/requests/" + url.PathEscape(requestKey) + "/assign"
	return c.sendForBool(ctx, http.MethodPost, path, assignVolunteerBody{VolunteerEmail: volunteerEmail})
}

func (c *ReliefClient) ApproveVolunteerRequest(ctx context.Context, victimID, timestamp string) (bool, error) {
	path := "/v1/requests/" + url.PathEscape(victimID) + "/" + url.PathEscape(timestamp) + "/approve"
	return c.sendForBool(ctx, http.MethodPost, path, nil)
}

type statusBody struct {
	Status string `json:"status"`
}

func (c *ReliefClient) UpdateRequestStatus(ctx context.Context, victimID, timestamp, status string) (bool, error) {
	path := "/v1/requests/" + url.PathEscape(victimID) + "/" + url.PathEscape(timestamp) + "/status"
	return c.sendForBool(ctx, http.MethodPost, path, statusBody{Status: status})
}

// ---- volunteer locations ----

type locationBody struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Address   string `json:"address"`
}

func (c *ReliefClient) UpdateVolunteerLocation(ctx context.Context, email, lat, lon, address string) error {
	path := "/v1/volunteers/" + url.PathEscape(email) + "/location"
	return c.sendJSON(ctx, http.MethodPut, path, locationBody{Latitude: lat, Longitude: lon, Address: address}, nil)
}

func (c *ReliefClient) GetAllVolunteers(ctx context.Context) ([]domain.User, error) {
	var wrapper dataEnvelope[[]domain.User]
	if err := c.getJSON(ctx, "/v1/volunteers", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

// ---- supply bundles ----

func (c *ReliefClient) CreateSupplyBundle(ctx context.Context, bundle domain.SupplyBundle) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/bundles", bundle)
}

func (c *ReliefClient) GetOrganizationSupplyBundles(ctx context.Context) ([]domain.SupplyBundle, error) {
	var wrapper dataEnvelope[[]domain.SupplyBundle]
	if err := c.getJSON(ctx, "/v1/bundles", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

func (c *ReliefClient) DistributeSupplyBundle(ctx context.Context, bundleID, volunteerEmail string) (bool, error) {
	path := "/v1/bundles/" + url.PathEscape(bundleID) + "/distribute"
	return c.sendForBool(ctx, http.MethodPost, path, assignVolunteerBody{VolunteerEmail: volunteerEmail})
}

// ---- donations ----

func (c *ReliefClient) MakeDonation(ctx context.Context, donation domain.Donation) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/donations", donation)
}

func (c *ReliefClient) GetDonorDonations(ctx context.Context, email string) ([]domain.Donation, error) {
	var wrapper dataEnvelope[[]domain.Donation]
	if err := c.getJSON(ctx, "/v1/donors/"+url.PathEscape(email)+"/donations", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

func (c *ReliefClient) GetOrganizationDonations(ctx context.Context) ([]domain.Donation, error) {
	var wrapper dataEnvelope[[]domain.Donation]
	if err := c.getJSON(ctx, "/v1/donations", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

// ---- bulk maintenance ----

func (c *ReliefClient) ClearDatabase(ctx context.Context) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/maintenance/clear-database", nil)
}

func (c *ReliefClient) ClearHelpRequests(ctx context.Context) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/maintenance/clear-help-requests", nil)
}

func (c *ReliefClient) ClearVolunteerLocations(ctx context.Context) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/maintenance/clear-volunteer-locations", nil)
}

func (c *ReliefClient) ClearSupplyBundles(ctx context.Context) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/maintenance/clear-supply-bundles", nil)
}

func (c *ReliefClient) ClearDonations(ctx context.Context) (bool, error) {
	return c.sendForBool(ctx, http.MethodPost, "/v1/maintenance/clear-donations", nil)
}
