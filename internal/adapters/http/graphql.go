package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/pinmap/internal/adapters/prompt"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

// buildSchema creates the GraphQL schema over the map session.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"lat":         &graphql.Field{Type: graphql.Float},
			"lng":         &graphql.Field{Type: graphql.Float},
			"description": &graphql.Field{Type: graphql.String},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"place_id":    &graphql.Field{Type: graphql.String},
			"lat":         &graphql.Field{Type: graphql.Float},
			"lng":         &graphql.Field{Type: graphql.Float},
			"description": &graphql.Field{Type: graphql.String},
			"interactive": &graphql.Field{Type: graphql.Boolean},
		},
	})

	styleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "OverlayStyle",
		Fields: graphql.Fields{
			"color":       &graphql.Field{Type: graphql.String},
			"weight":      &graphql.Field{Type: graphql.Int},
			"opacity":     &graphql.Field{Type: graphql.Float},
			"fillColor":   &graphql.Field{Type: graphql.String},
			"fillOpacity": &graphql.Field{Type: graphql.Float},
		},
	})

	overlayType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CountryOverlay",
		Fields: graphql.Fields{
			"country_code": &graphql.Field{Type: graphql.String},
			"style":        &graphql.Field{Type: styleType},
			"geometry": &graphql.Field{
				Type:        graphql.String,
				Description: "GeoJSON geometry, serialized",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					o, _ := p.Source.(domain.CountryOverlay)
					return string(o.Geometry), nil
				},
			},
		},
	})

	resolutionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Resolution",
		Fields: graphql.Fields{
			"generation": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, _ := p.Source.(domain.Resolution)
					return strconv.FormatUint(r.Generation, 10), nil
				},
			},
			"countries": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"overlays":  &graphql.Field{Type: graphql.Int},
			"failures":  &graphql.Field{Type: graphql.Int},
			"applied":   &graphql.Field{Type: graphql.Boolean},
			"duration": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, _ := p.Source.(domain.Resolution)
					return r.Duration.String(), nil
				},
			},
		},
	})

	currentMode := func() string { return string(deps.Session.Modes().Mode()) }

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"places": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Stored places in insertion order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Session.Store().List(), nil
				},
			},
			"place": &graphql.Field{
				Type:        placeType,
				Description: "Get a place by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					place, ok := deps.Session.Store().Get(p.Args["id"].(string))
					if !ok {
						return nil, domain.ErrPlaceNotFound
					}
					return place, nil
				},
			},
			"markers": &graphql.Field{
				Type:        graphql.NewList(markerType),
				Description: "Rendered markers",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.View.Markers(), nil
				},
			},
			"overlays": &graphql.Field{
				Type:        graphql.NewList(overlayType),
				Description: "Rendered country overlays",
				Args: graphql.FieldConfigArgument{
					"country": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					overlays := deps.View.Overlays()
					country, _ := p.Args["country"].(string)
					if country == "" {
						return overlays, nil
					}
					var out []domain.CountryOverlay
					for _, o := range overlays {
						if o.CountryCode == country {
							out = append(out, o)
						}
					}
					return out, nil
				},
			},
			"countries": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Highlighted country codes",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					seen := make(map[string]bool)
					out := []string{}
					for _, o := range deps.View.Overlays() {
						if !seen[o.CountryCode] {
							seen[o.CountryCode] = true
							out = append(out, o.CountryCode)
						}
					}
					return out, nil
				},
			},
			"mode": &graphql.Field{
				Type:        graphql.String,
				Description: "Current map mode, edit or view",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return currentMode(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"setMode": &graphql.Field{
				Type:        graphql.String,
				Description: "Switch between edit and view mode",
				Args: graphql.FieldConfigArgument{
					"edit": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Boolean)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					deps.Session.Modes().SetMode(p.Context, p.Args["edit"].(bool))
					return currentMode(), nil
				},
			},
			"click": &graphql.Field{
				Type:        placeType,
				Description: "Click the map; a null description cancels the prompt",
				Args: graphql.FieldConfigArgument{
					"lat":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ctx := prompt.WithAnswers(p.Context, answerArg(p.Args, "description"))
					at := domain.LatLng{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					place, err := deps.View.Click(ctx, at)
					if err != nil {
						return nil, err
					}
					if place == nil {
						return nil, nil
					}
					return *place, nil
				},
			},
			"activateMarker": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Edit (action 1) or delete (action 2) a marker",
				Args: graphql.FieldConfigArgument{
					"id":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"action":      &graphql.ArgumentConfig{Type: graphql.String},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ctx := prompt.WithAnswers(p.Context, answerArg(p.Args, "action"), answerArg(p.Args, "description"))
					if err := deps.Session.Presenter().Activate(ctx, p.Args["id"].(string)); err != nil {
						return nil, err
					}
					return true, nil
				},
			},
			"refreshHighlights": &graphql.Field{
				Type:        resolutionType,
				Description: "Recompute the country highlights",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Session.Refresh(p.Context), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func answerArg(args map[string]interface{}, name string) prompt.Answer {
	if s, ok := args[name].(string); ok {
		return prompt.Say(s)
	}
	return prompt.Cancel()
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
