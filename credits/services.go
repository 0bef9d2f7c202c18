package credits

import (
	"net/http"

	"github.com/developersupreme/supreme-ai-sdk-sub000/agents"
	"github.com/developersupreme/supreme-ai-sdk-sub000/personas"
	"github.com/developersupreme/supreme-ai-sdk-sub000/rest"
	"github.com/pkg/errors"
)

// buildAPIClients wires the three rest clients: the credits API, the
// personas API (which may live on a different host) and the API root the
// agents endpoint hangs off.
func (c *Client) buildAPIClients(httpClient *http.Client) error {
	restOpts := []rest.Option{rest.WithLogger(c.logger)}
	if httpClient != nil {
		restOpts = append(restOpts, rest.WithHTTPClient(httpClient))
	}

	api, err := rest.NewClient(c.cfg.APIBaseURL, c.currentToken, restOpts...)
	if err != nil {
		return errors.Wrap(err, "[buildAPIClients] credits api")
	}
	c.api = api

	personasAPI, err := rest.NewClient(c.cfg.PersonasBaseURL, c.currentToken, restOpts...)
	if err != nil {
		return errors.Wrap(err, "[buildAPIClients] personas api")
	}
	c.personasClient = personas.NewClient(personasAPI, c.jar, c.logger)

	rootAPI, err := rest.NewClient(apiRootURL(c.cfg.APIBaseURL), c.currentToken, restOpts...)
	if err != nil {
		return errors.Wrap(err, "[buildAPIClients] api root")
	}
	c.agentsClient = agents.NewClient(rootAPI)

	return nil
}
