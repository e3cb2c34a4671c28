package domain

type PolicyInput struct {
	Requester string `json:"requester"`
	Resource  string `json:"resource"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
