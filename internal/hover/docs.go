package hover

// Static documentation for constructs whose meaning does not depend on the
// compiled world.

var keywordDocs = map[string]string{
	"---":    "Frontmatter delimiter. The block between the two `---` lines declares the world, its types and its entities.",
	"->":     "Jump. Transfers control to a section, an exit (`-> exit:north`) or a built-in target (`END`, `RETURN`).",
	"END":    "Ends the conversation. Control leaves the dialogue entirely.",
	"RETURN": "Returns to the section that jumped here.",
	"+":      "One-shot choice. Disappears once taken.",
	"*":      "Sticky choice. Stays available after it is taken.",
	"?":      "Condition. The enclosing choice or exit is only available while every condition holds.",
	">":      "Effect. Runs when the enclosing choice is taken or the rule fires.",
	"!":      "Blocked message. Shown when an exit or choice is unavailable.",
	"player": "The player character. Valid as a move target and in conditions.",
	"here":   "The location the player is currently in.",
}

var traitDocs = map[string]string{
	"interactable": "Can be talked to and targeted by choices.",
	"portable":     "Can be picked up, carried and moved between containers.",
	"container":    "Can hold other entities; they appear in its `container` property.",
	"mobile":       "Can move between locations on its own, typically through rules.",
}

var effectDocs = map[string]string{
	"move":    "`> move @entity -> target` relocates an entity into a location, container or `player`.",
	"destroy": "`> destroy @entity` removes an entity from the world.",
	"reveal":  "`> reveal @entity.prop` makes a hidden property visible to the player.",
	"set":     "`> set @entity.prop = value` assigns a property explicitly.",
	"spawn":   "`> spawn @entity -> location` places a previously absent entity.",
}

var conditionDocs = map[string]string{
	"in":     "`? @entity in location` holds when the entity is inside the location or container.",
	"not in": "`? @entity not in location` holds when the entity is elsewhere.",
	"not":    "Negates the condition that follows.",
}

var frontmatterDocs = map[string]string{
	"world":    "World metadata: `name`, `version`, `start`, `entry`, `seed`, `description`, `author`.",
	"types":    "Entity type declarations. Each type lists traits in brackets and typed properties.",
	"entities": "Entity declarations: `@id: Type { prop: value }`.",
	"import":   "Imports another world file; its declarations become visible here.",
}

var worldKeyDocs = map[string]string{
	"name":        "Display name of the world.",
	"version":     "Version string of the world file.",
	"start":       "Location id the player starts in.",
	"entry":       "Dialogue section that runs first.",
	"seed":        "Random seed for deterministic runs.",
	"description": "Free-form description.",
	"author":      "Author credit.",
}

var constructorDocs = map[string]string{
	"bool":    "Boolean, `true` or `false`.",
	"boolean": "Boolean, `true` or `false`.",
	"int":     "Integer, optionally bounded: `int(min, max)`.",
	"integer": "Integer, optionally bounded: `integer(min, max)`.",
	"number":  "Floating-point number, optionally bounded.",
	"float":   "Floating-point number, optionally bounded.",
	"string":  "Text value.",
	"enum":    "One of a fixed set of values: `enum(a, b, c)`.",
	"ref":     "Reference to an entity of a type: `ref(Type)`.",
	"list":    "List of values or references: `list(Type)`.",
}

var ruleKeywordDocs = map[string]string{
	"rule":    "Declares a rule: effects that run when its trigger fires and its conditions hold.",
	"actor":   "The entity that performs the rule.",
	"trigger": "When the rule fires, for example `phase_is reveal` or `enter tavern`.",
	"select":  "Binds a variable to each entity matching the `where` clauses.",
	"selects": "Binds a variable to each entity matching the `where` clauses.",
	"from":    "The candidate set for a `select`.",
	"as":      "Names the variable bound by `select`.",
	"where":   "Filters the `select` candidates.",
}

const (
	visibilityDoc = "**~** hidden property. Not shown to the player until revealed with `> reveal`."
	orDoc         = "**any:** the indented conditions below are combined with OR instead of AND."
	commentDoc    = "Comment. Ignored by the compiler."
	containerDoc  = "Implicit property holding the location or container an entity is in. It is not declared in a type."
)
