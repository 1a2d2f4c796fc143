package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	fragment string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithInitialRoute sets the URL fragment the router starts from, e.g.
// "#/employee/scheduling". Empty starts from the remembered role's landing page.
func WithInitialRoute(fragment string) Option {
	return func(a *application) {
		a.fragment = fragment
	}
}
