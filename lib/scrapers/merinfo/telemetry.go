package merinfo

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("merinfo-backend/lib/scrapers/merinfo")
