package refdata

// Built-in tables. They are copied into a Dataset by Default and never
// mutated afterwards.

var defaultTopDomains = []string{
	"google.com", "youtube.com", "facebook.com", "instagram.com", "whatsapp.com", "twitter.com",
	"x.com", "linkedin.com", "wikipedia.org", "amazon.com", "amazon.co.uk", "amazon.de",
	"apple.com", "icloud.com", "microsoft.com", "live.com", "outlook.com", "office.com",
	"office365.com", "microsoftonline.com", "bing.com", "yahoo.com", "netflix.com", "paypal.com",
	"ebay.com", "reddit.com", "github.com", "gitlab.com", "stackoverflow.com", "dropbox.com",
	"adobe.com", "salesforce.com", "zoom.us", "slack.com", "spotify.com", "twitch.tv",
	"tiktok.com", "pinterest.com", "tumblr.com", "wordpress.com", "shopify.com", "stripe.com",
	"squareup.com", "chase.com", "bankofamerica.com", "wellsfargo.com", "citibank.com",
	"capitalone.com", "americanexpress.com", "discover.com", "usbank.com", "hsbc.com",
	"barclays.co.uk", "lloydsbank.com", "natwest.com", "santander.com", "coinbase.com",
	"binance.com", "kraken.com", "blockchain.com", "metamask.io", "docusign.com", "fedex.com",
	"ups.com", "usps.com", "dhl.com", "walmart.com", "target.com", "bestbuy.com", "costco.com",
	"alibaba.com", "aliexpress.com", "booking.com", "airbnb.com", "expedia.com", "uber.com",
	"lyft.com", "steampowered.com", "steamcommunity.com", "epicgames.com", "roblox.com",
	"playstation.com", "xbox.com", "nintendo.com", "cloudflare.com", "godaddy.com",
	"namecheap.com", "mozilla.org", "yandex.ru", "baidu.com", "qq.com", "naver.com",
	"samsung.com", "intuit.com", "turbotax.com", "irs.gov", "venmo.com", "cash.app",
	"zelle.com", "wise.com", "revolut.com", "discord.com", "telegram.org", "signal.org",
	"proton.me", "protonmail.com", "gmail.com", "mail.ru", "aol.com", "nytimes.com",
	"bbc.co.uk", "bbc.com", "cnn.com", "theguardian.com", "medium.com", "quora.com",
	"imdb.com", "etsy.com", "hulu.com", "disneyplus.com", "oracle.com", "ibm.com",
	"intel.com", "nvidia.com", "hp.com", "dell.com", "lenovo.com", "openai.com", "chatgpt.com",
	"anthropic.com", "notion.so", "atlassian.com", "trello.com", "canva.com", "figma.com",
	"mailchimp.com", "hubspot.com", "okta.com", "duo.com",
}

// defaultHostingPlatforms are public hosting, preview and tunnel platforms
// where anyone can publish content under a subdomain.
var defaultHostingPlatforms = []string{
	"vercel.app", "netlify.app", "netlify.com", "herokuapp.com", "github.io", "gitlab.io",
	"pages.dev", "workers.dev", "web.app", "firebaseapp.com", "appspot.com", "azurewebsites.net",
	"blob.core.windows.net", "cloudfront.net", "s3.amazonaws.com", "amplifyapp.com",
	"onrender.com", "glitch.me", "repl.co", "replit.app", "replit.dev", "surge.sh",
	"000webhostapp.com", "weebly.com", "wixsite.com", "webflow.io", "sites.google.com",
	"blogspot.com", "wordpress.com", "godaddysites.com", "square.site", "framer.app",
	"fly.dev", "railway.app", "deno.dev", "ngrok.io", "ngrok-free.app", "ngrok.app",
	"loca.lt", "trycloudflare.com", "serveo.net", "localhost.run", "ipfs.io", "dweb.link",
	"r2.dev", "forms.gle", "typedream.app", "carrd.co",
}

var defaultTunnelServices = []string{
	"ngrok", "localtunnel", "loca.lt", "trycloudflare", "serveo", "localhost.run", "pagekite",
	"localxpose", "telebit", "tunnelto", "bore.pub", "pinggy",
}

var defaultSuspiciousTLDs = []string{
	"tk", "ml", "ga", "cf", "gq", "xyz", "top", "club", "online", "site", "work", "click",
	"link", "buzz", "rest", "icu", "cam", "monster", "cyou", "sbs", "zip", "mov", "lol",
	"quest", "support", "live", "shop",
}

// defaultParkingTLDs are free or near-free registries popular for throwaway
// and parked domains.
var defaultParkingTLDs = []string{"tk", "ml", "ga", "cf", "gq", "pw", "cc"}

var defaultPrivacyMarkers = []string{
	"whoisguard", "privacyprotect", "domainsbyproxy", "contactprivacy", "withheldforprivacy",
	"whoisprivacy", "redacted-for-privacy", "privacy-protect", "perfectprivacy",
	"parked", "parking", "sedoparking", "bodis", "parkingcrew", "above.com", "domain-for-sale",
	"buy-this-domain", "forsale",
}

var defaultLureWords = []string{
	"verify", "verification", "secure", "security", "login", "log-in", "signin", "sign-in",
	"update", "account", "confirm", "unlock", "suspended", "billing", "payment", "recover",
	"reset", "password", "wallet", "support", "auth", "validate", "alert", "webscr",
}

var defaultEphemeralWords = []string{"temp", "tmp", "staging", "stage", "demo", "preview", "sandbox", "test"}

var defaultFreeMailProviders = []string{
	"gmail.com", "googlemail.com", "yahoo.com", "ymail.com", "hotmail.com", "outlook.com",
	"live.com", "msn.com", "aol.com", "icloud.com", "me.com", "mail.com", "gmx.com", "gmx.de",
	"yandex.com", "yandex.ru", "mail.ru", "proton.me", "protonmail.com", "zoho.com",
	"tutanota.com", "qq.com", "163.com",
}

// defaultManualBrands maps brand keywords to the official registrable domain.
// These win over keywords derived from the allow-list.
var defaultManualBrands = map[string]string{
	"paypal":          "paypal.com",
	"apple":           "apple.com",
	"appleid":         "apple.com",
	"icloud":          "icloud.com",
	"microsoft":       "microsoft.com",
	"office365":       "microsoft.com",
	"outlook":         "microsoft.com",
	"onedrive":        "microsoft.com",
	"sharepoint":      "microsoft.com",
	"google":          "google.com",
	"gmail":           "google.com",
	"amazon":          "amazon.com",
	"netflix":         "netflix.com",
	"facebook":        "facebook.com",
	"instagram":       "instagram.com",
	"whatsapp":        "whatsapp.com",
	"linkedin":        "linkedin.com",
	"chase":           "chase.com",
	"wellsfargo":      "wellsfargo.com",
	"bankofamerica":   "bankofamerica.com",
	"citibank":        "citibank.com",
	"americanexpress": "americanexpress.com",
	"amex":            "americanexpress.com",
	"coinbase":        "coinbase.com",
	"binance":         "binance.com",
	"metamask":        "metamask.io",
	"kraken":          "kraken.com",
	"blockchain":      "blockchain.com",
	"docusign":        "docusign.com",
	"dropbox":         "dropbox.com",
	"adobe":           "adobe.com",
	"fedex":           "fedex.com",
	"dhl":             "dhl.com",
	"usps":            "usps.com",
	"ebay":            "ebay.com",
	"steam":           "steampowered.com",
	"roblox":          "roblox.com",
	"discord":         "discord.com",
	"venmo":           "venmo.com",
	"zelle":           "zelle.com",
	"irs":             "irs.gov",
	"hsbc":            "hsbc.com",
	"barclays":        "barclays.co.uk",
	"santander":       "santander.com",
	"github":          "github.com",
	"yahoo":           "yahoo.com",
	"spotify":         "spotify.com",
	"walmart":         "walmart.com",
}

// brandStoplist holds allow-list labels that are too generic to act as brand
// keywords.
var brandStoplist = map[string]bool{
	"live": true, "office": true, "target": true, "discover": true, "medium": true,
	"signal": true, "booking": true, "cash": true, "wise": true,
	"slack": true, "intel": true, "shopify": true, "mail": true, "duo": true, "figma": true,
	"notion": true, "square": true, "squareup": true, "steamcommunity": true,
	"bing": true, "dell": true, "zoom": true, "intuit": true, "canva": true, "revolut": true,
	"stripe": true, "oracle": true,
}

// Phishing-language keyword families.
var (
	defaultUrgencyWords = []string{
		"urgent", "immediately", "act now", "within 24 hours", "within 48 hours", "expires",
		"expire", "suspended", "final notice", "last chance", "limited time", "right away",
		"as soon as possible", "asap", "deadline", "will be closed", "will be locked",
	}
	defaultFinancialWords = []string{
		"bank", "payment", "invoice", "refund", "wire transfer", "transaction", "credit card",
		"billing", "tax", "overdue", "outstanding balance", "gift card", "bitcoin", "paypal",
	}
	defaultSecurityWords = []string{
		"verify", "password", "login", "log in", "sign in", "account", "security alert",
		"unusual activity", "suspicious activity", "unauthorized", "confirm your identity",
		"locked", "credentials", "two-factor", "reset",
	}
	defaultRewardWords = []string{
		"winner", "won", "prize", "reward", "free", "congratulations", "claim", "bonus",
		"lottery", "selected", "gift", "cash prize", "exclusive offer",
	}
)

var (
	defaultCryptoWords = []string{
		"wallet", "crypto", "bitcoin", "btc", "ethereum", "eth", "usdt", "airdrop", "token",
		"exchange", "metamask", "trust wallet", "ledger", "binance", "coinbase", "nft",
		"double your", "giveaway", "mining", "staking", "defi",
	}
	defaultSeedPhraseWords = []string{
		"seed phrase", "recovery phrase", "secret phrase", "mnemonic", "private key",
		"12-word", "12 word", "24-word", "24 word", "secret recovery", "wallet phrase",
	}
)

var defaultDangerousExtensions = []string{
	".exe", ".scr", ".bat", ".cmd", ".pif", ".vbs", ".vbe", ".jse", ".wsf",
	".hta", ".msi", ".jar", ".ps1", ".lnk", ".iso", ".img", ".apk", ".dmg", ".docm", ".xlsm",
}

var defaultSoftwareLureWords = []string{
	"install", "update", "download", "invoice", "attached", "attachment", "open the file",
	"run", "enable macros", "enable content", "viewer", "plugin", "codec", "security patch",
}
