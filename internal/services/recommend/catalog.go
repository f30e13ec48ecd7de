package recommend

import (
	"sitescope/internal/domain"
	"sitescope/internal/services/scoring"
)

// entry is the improvement advice for one negative rubric rule.
type entry struct {
	Title       string
	Description string
	HowTo       string
	Priority    domain.Priority
	Effort      domain.Effort
}

var catalog = map[string]entry{
	scoring.RulePerfScorePoor: {
		Title:       "Improve page load performance",
		Description: "The lab performance score is low, so visitors on slow connections wait too long.",
		HowTo:       "Compress and resize images, defer non-critical JavaScript and enable caching headers.",
		Priority:    domain.PriorityHigh,
		Effort:      domain.EffortHard,
	},
	scoring.RulePerfLCPSlow: {
		Title:       "Speed up the largest contentful paint",
		Description: "The main content takes more than four seconds to appear.",
		HowTo:       "Preload the hero image, serve it in a modern format and reduce render-blocking CSS.",
		Priority:    domain.PriorityHigh,
		Effort:      domain.EffortMedium,
	},
	scoring.RulePerfCLSHigh: {
		Title:       "Reduce layout shift",
		Description: "Elements move while the page loads, which causes misclicks.",
		HowTo:       "Set explicit width and height on images and embeds and reserve space for ads.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortMedium,
	},
	scoring.RulePerfTBTHigh: {
		Title:       "Reduce main thread blocking",
		Description: "Long JavaScript tasks keep the page from responding to input.",
		HowTo:       "Split large bundles, remove unused scripts and load third-party tags asynchronously.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortHard,
	},

	scoring.RuleSEOMissingTitle: {
		Title:       "Add a page title",
		Description: "Search engines and browser tabs show nothing meaningful without a title.",
		HowTo:       "Add a descriptive <title> of 10 to 70 characters that names the brand and the page topic.",
		Priority:    domain.PriorityCritical,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSEOTitleLength: {
		Title:       "Adjust the title length",
		Description: "Very short or very long titles are truncated or ignored in search results.",
		HowTo:       "Keep the title between 10 and 70 characters.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSEOMissingMetaDesc: {
		Title:       "Missing meta description",
		Description: "Search results show a random text excerpt instead of a summary you control.",
		HowTo:       "Add <meta name=\"description\"> with a 120 to 160 character summary of the page.",
		Priority:    domain.PriorityHigh,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSEOMissingH1: {
		Title:       "Add an H1 heading",
		Description: "The page has no main heading describing its topic.",
		HowTo:       "Wrap the main page headline in a single <h1> element.",
		Priority:    domain.PriorityHigh,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSEOMultipleH1: {
		Title:       "Use a single H1 heading",
		Description: "Several H1 headings dilute the main topic of the page.",
		HowTo:       "Keep one <h1> for the main headline and demote the others to <h2>.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSEOMissingCanonical: {
		Title:       "Add a canonical link",
		Description: "Without a canonical URL, duplicate versions of the page compete in search.",
		HowTo:       "Add <link rel=\"canonical\"> pointing at the preferred URL of the page.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSEOMissingViewport: {
		Title:       "Add a viewport meta tag",
		Description: "Mobile browsers render the page zoomed out without a viewport declaration.",
		HowTo:       "Add <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">.",
		Priority:    domain.PriorityHigh,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSEOMissingOpenGraph: {
		Title:       "Add Open Graph tags",
		Description: "Shared links show no title, image or description on social networks.",
		HowTo:       "Add og:title, og:description, og:image and og:site_name meta tags.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSEOMissingStructured: {
		Title:       "Add structured data",
		Description: "Search engines cannot show rich results without schema.org markup.",
		HowTo:       "Describe the organization and main content with JSON-LD schema.org types.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortMedium,
	},
	scoring.RuleSEOMissingLang: {
		Title:       "Declare the document language",
		Description: "Screen readers and search engines guess the language of the page.",
		HowTo:       "Set the lang attribute on the <html> element, for example lang=\"tr\".",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSEONotIndexed: {
		Title:       "Get the site indexed",
		Description: "The site does not appear in the search index, so it cannot be found by search.",
		HowTo:       "Submit a sitemap in Search Console and check robots.txt and noindex tags.",
		Priority:    domain.PriorityCritical,
		Effort:      domain.EffortMedium,
	},

	scoring.RuleSecInvalidCertificate: {
		Title:       "Fix the TLS certificate",
		Description: "Browsers warn visitors that the connection is not secure.",
		HowTo:       "Install a valid certificate for every hostname, for example with Let's Encrypt.",
		Priority:    domain.PriorityCritical,
		Effort:      domain.EffortMedium,
	},
	scoring.RuleSecCertExpiring: {
		Title:       "Renew the TLS certificate",
		Description: "The certificate expires within two weeks.",
		HowTo:       "Renew the certificate now and enable automatic renewal.",
		Priority:    domain.PriorityHigh,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSecMissingHSTS: {
		Title:       "Enable HSTS",
		Description: "Browsers may still connect over plain HTTP first.",
		HowTo:       "Send Strict-Transport-Security: max-age=31536000; includeSubDomains.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSecMissingCSP: {
		Title:       "Add a Content-Security-Policy",
		Description: "Without a CSP, injected scripts run with full page privileges.",
		HowTo:       "Start with a report-only policy, review violations, then enforce it.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortHard,
	},
	scoring.RuleSecMissingXFO: {
		Title:       "Prevent clickjacking",
		Description: "Other sites can embed the page in a frame.",
		HowTo:       "Send X-Frame-Options: SAMEORIGIN or a frame-ancestors CSP directive.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSecMissingXCTO: {
		Title:       "Disable MIME sniffing",
		Description: "Browsers may interpret responses as a different content type.",
		HowTo:       "Send X-Content-Type-Options: nosniff.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSecMissingReferrer: {
		Title:       "Set a Referrer-Policy",
		Description: "Full URLs leak to third parties through the Referer header.",
		HowTo:       "Send Referrer-Policy: strict-origin-when-cross-origin.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleSecMissingPermissions: {
		Title:       "Set a Permissions-Policy",
		Description: "Embedded content can request camera, microphone or location access.",
		HowTo:       "Send a Permissions-Policy header that disables unused browser features.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},

	scoring.RuleContentThin: {
		Title:       "Expand the page content",
		Description: "The page has too little text to rank or to convince visitors.",
		HowTo:       "Add at least 300 words of original text that answers visitors' questions.",
		Priority:    domain.PriorityHigh,
		Effort:      domain.EffortHard,
	},
	scoring.RuleContentFewParagraphs: {
		Title:       "Structure the text into paragraphs",
		Description: "Long unbroken text is hard to read.",
		HowTo:       "Split the content into short paragraphs under descriptive subheadings.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleContentNoImages: {
		Title:       "Add images",
		Description: "Pages without visuals hold attention poorly.",
		HowTo:       "Add relevant, compressed images with descriptive alt text.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortMedium,
	},
	scoring.RuleContentMissingAlt: {
		Title:       "Add alt text to images",
		Description: "Images without alt text are invisible to screen readers and image search.",
		HowTo:       "Describe every meaningful image in its alt attribute; use alt=\"\" for decoration.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleContentFewLinks: {
		Title:       "Add internal links",
		Description: "Few internal links make other pages hard to discover.",
		HowTo:       "Link to related pages from the body text and the navigation.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleContentMarkupErrors: {
		Title:       "Fix markup validation errors",
		Description: "Invalid HTML renders inconsistently across browsers.",
		HowTo:       "Run the W3C validator and fix unclosed and misnested elements first.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortMedium,
	},

	scoring.RuleTrustFlagged: {
		Title:       "Remove malware or phishing content",
		Description: "The site is flagged by a reputation provider and browsers may block it.",
		HowTo:       "Clean the infection, patch the CMS and request a review from the provider.",
		Priority:    domain.PriorityCritical,
		Effort:      domain.EffortHard,
	},
	scoring.RuleTrustYoung: {
		Title:       "Build domain history",
		Description: "A very young domain earns little trust from visitors and search engines.",
		HowTo:       "Publish regularly and earn links from established sites.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortHard,
	},
	scoring.RuleTrustNoArchive: {
		Title:       "Make the site publicly archivable",
		Description: "No public archive history exists for the domain.",
		HowTo:       "Allow ia_archiver in robots.txt and submit the homepage to the Wayback Machine.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleTrustMissingSPF: {
		Title:       "Publish an SPF record",
		Description: "Anyone can send mail that appears to come from the domain.",
		HowTo:       "Add a TXT record such as v=spf1 include:_spf.example.com ~all listing your senders.",
		Priority:    domain.PriorityHigh,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleTrustMissingDMARC: {
		Title:       "Publish a DMARC record",
		Description: "Receivers have no policy for mail that fails authentication.",
		HowTo:       "Add a TXT record at _dmarc with v=DMARC1; p=none; rua=mailto:... and tighten it later.",
		Priority:    domain.PriorityMedium,
		Effort:      domain.EffortEasy,
	},
	scoring.RuleTrustMissingMX: {
		Title:       "Publish an MX record",
		Description: "The domain cannot receive mail, which looks unprofessional to customers.",
		HowTo:       "Point an MX record at your mail provider.",
		Priority:    domain.PriorityLow,
		Effort:      domain.EffortEasy,
	},
}
