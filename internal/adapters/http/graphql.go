package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to the booking service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	bookingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Booking",
		Fields: graphql.Fields{
			"booking_id":     &graphql.Field{Type: graphql.String},
			"start_location": &graphql.Field{Type: graphql.String},
			"end_location":   &graphql.Field{Type: graphql.String},
			"regions":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"status":         &graphql.Field{Type: graphql.String},
			"created_at":     &graphql.Field{Type: graphql.DateTime},
		},
	})

	segmentReportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SegmentsReport",
		Fields: graphql.Fields{
			"booking_id": &graphql.Field{Type: graphql.String},
			"complete":   &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"booking": &graphql.Field{
				Type:        bookingType,
				Description: "Get a booking's central record by id",
				Args: graphql.FieldConfigArgument{
					"booking_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["booking_id"].(string)
					return deps.Bookings.Status(p.Context, id)
				},
			},
			"bookings": &graphql.Field{
				Type:        graphql.NewList(bookingType),
				Description: "List bookings, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					bookings, _, err := deps.Bookings.List(p.Context, offset, limit)
					return bookings, err
				},
			},
			"bookingSegments": &graphql.Field{
				Type:        segmentReportType,
				Description: "Merged per-region segment report for a booking",
				Args: graphql.FieldConfigArgument{
					"booking_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["booking_id"].(string)
					return deps.Bookings.Segments(p.Context, id)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
