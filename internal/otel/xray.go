package otel

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/dannyrandall/moviesdb/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Handler wraps h so requests are traced with the given tracing mode.
func Handler(mode, svcName, operation string, h http.Handler) http.Handler {
	switch mode {
	case config.TracingOtel:
		return otelhttp.NewHandler(h, operation)
	case config.TracingXRay:
		return xray.Handler(xray.NewFixedSegmentNamer(svcName), h)
	default:
		return h
	}
}

// InstrumentAWS adds tracing middleware to AWS SDK clients built from cfg.
func InstrumentAWS(mode string, cfg *aws.Config) {
	switch mode {
	case config.TracingOtel:
		otelaws.AppendMiddlewares(&cfg.APIOptions)
	case config.TracingXRay:
		awsv2.AWSV2Instrumentor(&cfg.APIOptions)
	}
}

// HTTPClient returns a client that propagates the active trace.
func HTTPClient(mode string) *http.Client {
	switch mode {
	case config.TracingOtel:
		return otelhttp.DefaultClient
	case config.TracingXRay:
		return xray.Client(nil)
	default:
		return http.DefaultClient
	}
}

// TraceID returns the X-Ray formatted trace id for ctx, or "-" when the
// request isn't traced.
func TraceID(ctx context.Context) string {
	if span := trace.SpanFromContext(ctx); span.SpanContext().HasTraceID() {
		return XRayTraceID(span)
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		return seg.TraceID
	}

	return "-"
}
