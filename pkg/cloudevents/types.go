package cloudevents

import (
	"strings"
	"time"
)

// SpecVersion is the CloudEvents version emitted by this service
const SpecVersion = "1.0"

// SourceFulfillment identifies events produced by the fulfillment service
const SourceFulfillment = "/wms/fulfillment-service"

// Extension attribute names
const (
	ExtCorrelationID = "wmscorrelationid"
	ExtWorkflowID    = "wmsworkflowid"
	ExtMerchantID    = "wmsmerchantid"
)

// Event families, derived from the second-to-last segment of the event type
const (
	FamilyOrder     = "order"
	FamilyInbound   = "inbound"
	FamilyInventory = "inventory"
)

// CloudEvent represents a CloudEvents v1.0 structured-mode event
type CloudEvent struct {
	SpecVersion     string    `json:"specversion" bson:"specversion"`
	Type            string    `json:"type" bson:"type"`
	Source          string    `json:"source" bson:"source"`
	Subject         string    `json:"subject,omitempty" bson:"subject,omitempty"`
	ID              string    `json:"id" bson:"id"`
	Time            time.Time `json:"time" bson:"time"`
	DataContentType string    `json:"datacontenttype" bson:"datacontenttype"`
	Data            any       `json:"data" bson:"data"`

	CorrelationID string `json:"wmscorrelationid,omitempty" bson:"wmscorrelationid,omitempty"`
	WorkflowID    string `json:"wmsworkflowid,omitempty" bson:"wmsworkflowid,omitempty"`
	MerchantID    string `json:"wmsmerchantid,omitempty" bson:"wmsmerchantid,omitempty"`
}

// Family returns the aggregate family of an event type such as
// "wms.fulfillment.order.created" -> "order".
func Family(eventType string) string {
	parts := strings.Split(eventType, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// Extensions returns the non-empty extension attributes
func (e *CloudEvent) Extensions() map[string]string {
	ext := make(map[string]string, 3)
	if e.CorrelationID != "" {
		ext[ExtCorrelationID] = e.CorrelationID
	}
	if e.WorkflowID != "" {
		ext[ExtWorkflowID] = e.WorkflowID
	}
	if e.MerchantID != "" {
		ext[ExtMerchantID] = e.MerchantID
	}
	return ext
}
