package copilot

import (
	"fmt"
	"os"
)

// ServiceName returns "<app>-<env>-<svc>" when running under Copilot and
// fallback otherwise.
func ServiceName(fallback string) string {
	app, env, svc := App(), Environment(), os.Getenv("COPILOT_SERVICE_NAME")
	if app == "" || env == "" || svc == "" {
		return fallback
	}

	return fmt.Sprintf("%s-%s-%s", app, env, svc)
}

func App() string {
	return os.Getenv("COPILOT_APPLICATION_NAME")
}

func Environment() string {
	return os.Getenv("COPILOT_ENVIRONMENT_NAME")
}

// QueueURI is the URL of the queue Copilot provisions for a worker service.
func QueueURI() string {
	return os.Getenv("COPILOT_QUEUE_URI")
}

// ServiceURL is the service discovery URL of another service in the same
// Copilot application and environment.
func ServiceURL(svc string, port int) string {
	return fmt.Sprintf("http://%s.%s.%s.local:%d", svc, Environment(), App(), port)
}
