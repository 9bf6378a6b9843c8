package devenv

// VtopTestConfig is read from dev/.state/vtop_config.json5 by the live
// portal tests.
type VtopTestConfig struct {
	BaseUrl   string `json:"base_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Semester  string `json:"semester"`
	ModelPath string `json:"model_path"`
}
