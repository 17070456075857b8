package rbac

const (
	PermCompare = "grade:compare"
	PermBatch   = "grade:batch"
	PermColumn  = "grade:column"
)

// Default policy. Students may only check single answers.
var Default = Policy{
	"student": {
		PermCompare,
	},
	"teacher": {
		"grade:*",
	},
	"admin": {
		"*", // everything
	},
}
