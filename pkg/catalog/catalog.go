// Package catalog is the static knowledge base for Layer-7 protection
// detection. It maps each known protection service (CDN, WAF, DDoS
// mitigation edge) to the response headers, header-value substrings,
// body substrings and DNS CNAME suffixes that evidence its presence.
//
// The catalog is a closed set: adding a service means adding one
// Signature row, not a new type. Declaration order is significant — it
// is the final tie-breaker when two detections score identically, which
// keeps output deterministic for identical inputs.
package catalog

// Service identifies one protection service variant.
type Service string

// The closed set of recognized protection services. Unknown is the
// orchestrator's fallback for "something is filtering, vendor
// unidentified" and never carries a Signature row.
const (
	Cloudflare     Service = "Cloudflare"
	AWSWAF         Service = "AWS WAF"
	AzureWAF       Service = "Azure WAF"
	AzureFrontDoor Service = "Azure Front Door"
	F5BigIP        Service = "F5 BIG-IP"
	Akamai         Service = "Akamai"
	Imperva        Service = "Imperva"
	Sucuri         Service = "Sucuri"
	Fastly         Service = "Fastly"
	KeyCDN         Service = "KeyCDN"
	MaxCDN         Service = "MaxCDN"
	Incapsula      Service = "Incapsula"
	Barracuda      Service = "Barracuda"
	Fortinet       Service = "Fortinet"
	Citrix         Service = "Citrix"
	Radware        Service = "Radware"
	Unknown        Service = "Unknown"
)

// Indicator weights by evidence source. DNS suffixes are the most
// reliable signal: a CNAME pointing into a provider's edge domain is
// hard to fake accidentally. Header presence is strong, body text the
// weakest since block pages get customized.
const (
	WeightHeader    = 0.60
	WeightBody      = 0.40
	WeightDNSSuffix = 0.70
)

// Signature holds the detection patterns for one service. All pattern
// strings are lowercase; matching is case-insensitive.
type Signature struct {
	Service Service

	// Headers are response header names whose mere presence
	// indicates the service (e.g. "cf-ray").
	Headers []string

	// HeaderValues maps a header name to value substrings that
	// indicate the service when the header itself is generic
	// (e.g. "server" containing "cloudflare").
	HeaderValues map[string][]string

	// BodyPatterns are substrings of response bodies, typically from
	// branded block or challenge pages.
	BodyPatterns []string

	// DNSSuffixes match the tail of hostnames in a CNAME chain.
	DNSSuffixes []string

	// BlockMarkers are body substrings specific to this vendor's
	// block page, used by the bypass tester to classify a crafted
	// request as blocked.
	BlockMarkers []string
}

// signatures is the catalog in declaration order.
var signatures = []Signature{
	{
		Service: Cloudflare,
		Headers: []string{"cf-ray", "cf-cache-status", "cf-connecting-ip", "cf-ipcountry"},
		HeaderValues: map[string][]string{
			"server": {"cloudflare"},
		},
		BodyPatterns: []string{"cloudflare", "attention required!", "cf-error-details"},
		DNSSuffixes:  []string{".cloudflare.net", ".cloudflare.com", ".cdn.cloudflare.net"},
		BlockMarkers: []string{"attention required!", "sorry, you have been blocked", "cloudflare ray id"},
	},
	{
		Service: AWSWAF,
		Headers: []string{"x-amzn-requestid", "x-amz-cf-id", "x-amz-cf-pop"},
		HeaderValues: map[string][]string{
			"server":  {"cloudfront", "awselb"},
			"via":     {"cloudfront"},
			"x-cache": {"cloudfront"},
		},
		BodyPatterns: []string{"generated by cloudfront", "request blocked"},
		DNSSuffixes:  []string{".cloudfront.net", ".awsglobalaccelerator.com", ".elb.amazonaws.com"},
		BlockMarkers: []string{"request blocked", "generated by cloudfront"},
	},
	{
		Service: AzureWAF,
		Headers: []string{"x-azure-ref", "x-msedge-ref", "x-ms-ref"},
		HeaderValues: map[string][]string{
			"server": {"microsoft-azure-application-gateway"},
		},
		BodyPatterns: []string{"azure web application firewall"},
		DNSSuffixes:  []string{".azurewebsites.net", ".cloudapp.azure.com", ".trafficmanager.net"},
		BlockMarkers: []string{"the request is blocked"},
	},
	{
		Service:      AzureFrontDoor,
		Headers:      []string{"x-azure-fdid", "x-fd-healthprobe"},
		DNSSuffixes:  []string{".azurefd.net", ".azureedge.net", ".t-msedge.net"},
		BlockMarkers: []string{"the request is blocked"},
	},
	{
		Service: F5BigIP,
		Headers: []string{"x-wa-info", "x-cnection"},
		HeaderValues: map[string][]string{
			"server":     {"bigip", "big-ip", "f5"},
			"set-cookie": {"bigipserver", "ts0", "f5_cspm"},
		},
		BodyPatterns: []string{"the requested url was rejected", "your support id is"},
		DNSSuffixes:  []string{".f5cloudservices.com"},
		BlockMarkers: []string{"the requested url was rejected", "your support id is"},
	},
	{
		Service: Akamai,
		Headers: []string{"x-akamai-transformed", "x-akamai-request-id", "akamai-origin-hop"},
		HeaderValues: map[string][]string{
			"server": {"akamaighost", "akamai"},
		},
		BodyPatterns: []string{"access denied", "reference&#32;&#35;", "errors.edgesuite.net"},
		DNSSuffixes:  []string{".akamai.net", ".akamaiedge.net", ".akamaihd.net", ".edgesuite.net", ".edgekey.net"},
		BlockMarkers: []string{"reference&#32;&#35;", "errors.edgesuite.net"},
	},
	{
		Service: Imperva,
		Headers: []string{"x-iinfo"},
		HeaderValues: map[string][]string{
			"x-cdn":      {"imperva", "incapsula"},
			"set-cookie": {"incap_ses", "visid_incap"},
		},
		BodyPatterns: []string{"imperva", "powered by incapsula"},
		DNSSuffixes:  []string{".impervadns.net"},
		BlockMarkers: []string{"request unsuccessful. incapsula incident id"},
	},
	{
		Service: Sucuri,
		Headers: []string{"x-sucuri-id", "x-sucuri-cache", "x-sucuri-block"},
		HeaderValues: map[string][]string{
			"server": {"sucuri/cloudproxy"},
		},
		BodyPatterns: []string{"sucuri website firewall", "cloudproxy"},
		DNSSuffixes:  []string{".sucuri.net"},
		BlockMarkers: []string{"sucuri website firewall - access denied"},
	},
	{
		Service: Fastly,
		Headers: []string{"fastly-debug-digest", "x-fastly-request-id", "x-timer"},
		HeaderValues: map[string][]string{
			"x-served-by": {"cache-"},
			"via":         {"fastly"},
		},
		DNSSuffixes: []string{".fastly.net", ".fastlylb.net"},
	},
	{
		Service: KeyCDN,
		HeaderValues: map[string][]string{
			"server": {"keycdn"},
			"x-cdn":  {"keycdn"},
		},
		DNSSuffixes: []string{".kxcdn.com"},
	},
	{
		Service: MaxCDN,
		HeaderValues: map[string][]string{
			"server": {"netdna", "maxcdn"},
			"x-cdn":  {"maxcdn"},
		},
		DNSSuffixes: []string{".netdna-cdn.com", ".maxcdn.com"},
	},
	{
		Service: Incapsula,
		Headers: []string{"x-iinfo"},
		HeaderValues: map[string][]string{
			"x-cdn":      {"incapsula"},
			"set-cookie": {"incap_ses", "visid_incap"},
		},
		BodyPatterns: []string{"incapsula incident id", "_incapsula_resource"},
		DNSSuffixes:  []string{".incapdns.net"},
		BlockMarkers: []string{"incapsula incident id"},
	},
	{
		Service: Barracuda,
		HeaderValues: map[string][]string{
			"server":     {"barracuda"},
			"set-cookie": {"barra_counter_session", "barracuda_"},
		},
		BodyPatterns: []string{"you have been blocked", "barracuda"},
		DNSSuffixes:  []string{".barracudanetworks.com"},
		BlockMarkers: []string{"you have been blocked"},
	},
	{
		Service: Fortinet,
		Headers: []string{"fortiwafsid"},
		HeaderValues: map[string][]string{
			"server":     {"fortiweb"},
			"set-cookie": {"fortiwafsid"},
		},
		BodyPatterns: []string{"fortigate", "web page blocked", ".fgd_icon"},
		BlockMarkers: []string{"web page blocked"},
	},
	{
		Service: Citrix,
		Headers: []string{"cneonction", "nncoection"},
		HeaderValues: map[string][]string{
			"via":        {"ns-cache"},
			"set-cookie": {"ns_af", "citrix_ns_id"},
		},
		BodyPatterns: []string{"ns_af", "citrix"},
		DNSSuffixes:  []string{".netscalergateway.net"},
	},
	{
		Service: Radware,
		Headers: []string{"x-sl-compstate"},
		HeaderValues: map[string][]string{
			"server": {"appwall"},
		},
		BodyPatterns: []string{"unauthorized activity has been detected", "cloudwebsec.radware.com"},
		BlockMarkers: []string{"unauthorized activity has been detected"},
	},
}

// genericBlockMarkers are body substrings that indicate active
// filtering without identifying a vendor. The orchestrator uses these
// for the Unknown fallback, the bypass tester for block classification.
var genericBlockMarkers = []string{
	"access denied",
	"request blocked",
	"blocked by security policy",
	"security violation",
	"forbidden",
	"unusual traffic",
	"captcha",
	"web application firewall",
}

// Signatures returns the catalog rows in declaration order. The
// returned slice is a copy; rows share backing arrays and must be
// treated as read-only.
func Signatures() []Signature {
	out := make([]Signature, len(signatures))
	copy(out, signatures)
	return out
}

// Lookup returns the signature row for a service.
func Lookup(s Service) (Signature, bool) {
	for _, sig := range signatures {
		if sig.Service == s {
			return sig, true
		}
	}
	return Signature{}, false
}

// DeclarationIndex returns the position of s in the catalog, or
// len(catalog) for services without a row (Unknown sorts last).
func DeclarationIndex(s Service) int {
	for i, sig := range signatures {
		if sig.Service == s {
			return i
		}
	}
	return len(signatures)
}

// GenericBlockMarkers returns vendor-neutral block-page substrings.
func GenericBlockMarkers() []string {
	out := make([]string, len(genericBlockMarkers))
	copy(out, genericBlockMarkers)
	return out
}
