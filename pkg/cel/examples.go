package cel

// FilterExpressionExamples are expressions accepted by filter.expression.
var FilterExpressionExamples = map[string]string{
	"event_type":        `eventType == "IOT_TELEMETRY"`,
	"mac_prefix":        `event.iotTelemetry.deviceInfo.deviceMacAddress.startsWith("FC")`,
	"has_position":      `has(event.iotTelemetry.detectedPosition)`,
	"confidence_factor": `event.iotTelemetry.detectedPosition.confidenceFactor < 50.0`,
	"in_list":           `eventType in ["IOT_TELEMETRY", "DEVICE_ENTRY"]`,
	"non_telemetry":     `eventType != "IOT_TELEMETRY" || event.iotTelemetry.deviceInfo.deviceType == "BLE_TAG"`,
}
