package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrWong99/creatorgw/internal/catalogue"
)

// CatalogueCheck reports whether the tool catalogue is populated and every
// descriptor carries an input schema.
func CatalogueCheck() Checker {
	return Checker{
		Name: "catalogue",
		Check: func(context.Context) error {
			descs := catalogue.List()
			if len(descs) == 0 {
				return errors.New("no tools registered")
			}
			for _, d := range descs {
				if len(d.InputSchema) == 0 {
					return fmt.Errorf("tool %s has no input schema", d.Name)
				}
			}
			return nil
		},
	}
}

// ProviderCheck probes endpoint with a GET request carrying header. The
// provider is considered ready when it answers with a non-5xx status other
// than 401 or 403; a rejected credential makes every job fail, so it counts
// as not ready. A nil client uses [http.DefaultClient].
func ProviderCheck(name, endpoint string, client *http.Client, header http.Header) Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return fmt.Errorf("build request: %w", err)
			}
			for k, vs := range header {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

			switch {
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				return fmt.Errorf("credentials rejected (status %d)", resp.StatusCode)
			case resp.StatusCode >= 500:
				return fmt.Errorf("status %d", resp.StatusCode)
			}
			return nil
		},
	}
}
