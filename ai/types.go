package ai

// Topics defines the fixed taxonomy classifiers draw feedback topics from.
var Topics = []string{
	"bug",
	"feature_request",
	"pricing",
	"ux",
	"performance",
	"onboarding",
	"support",
	"documentation",
	"integration",
	"security",
	"billing",
	"mobile",
	"api",
}
