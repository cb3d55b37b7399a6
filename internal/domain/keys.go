package domain

import (
	"fmt"
	"strings"
)

const DefaultNamespace = "default"

const (
	setKeyPrefix  = "set"
	maxTypeTagLen = 18
)

// RoutingTag builds the hash tag shared by every collection of the same
// schema type and namespace. The backing store colocates keys whose tags
// match, which is what makes multi-key set operations legal against it.
func RoutingTag(schemaType, namespace string) string {
	schemaType = strings.ToLower(strings.TrimSpace(schemaType))
	if len(schemaType) > maxTypeTagLen {
		schemaType = schemaType[:maxTypeTagLen]
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return schemaType + "-" + namespace
}

// SetKey builds a collection key of the form set-{<type>-<namespace>}-<suffix>.
// The braces are the routing-group delimiter recognized by the store's
// partitioning scheme; the suffix keeps distinct collections apart.
func SetKey(schemaType, namespace, suffix string) string {
	return fmt.Sprintf("%s-{%s}-%s", setKeyPrefix, RoutingTag(schemaType, namespace), suffix)
}
