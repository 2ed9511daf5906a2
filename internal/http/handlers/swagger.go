package handlers

import "github.com/gin-gonic/gin"

const swaggerUIHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>Paygate API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
    <style>
      body { margin: 0; background: #f8fafc; }
      #swagger-ui { max-width: 1200px; margin: 0 auto; }
    </style>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: "/docs/openapi.yaml",
        dom_id: "#swagger-ui",
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis],
        layout: "BaseLayout"
      });
    </script>
  </body>
</html>`

const openAPIYAML = `openapi: 3.0.3
info:
  title: Paygate API
  description: User authentication and Razorpay payment processing.
  version: 1.0.0
components:
  securitySchemes:
    BearerAuth:
      type: http
      scheme: bearer
      bearerFormat: JWT
paths:
  /auth/signup:
    post:
      summary: Create a new user account
      responses:
        "201": { description: User created }
        "409": { description: Email already registered }
  /auth/signin:
    post:
      summary: Sign in and receive a JWT access token
      responses:
        "200": { description: Token issued }
        "401": { description: Invalid credentials }
  /auth/signout:
    post:
      summary: Revoke the presented access token
      security: [{ BearerAuth: [] }]
      responses:
        "204": { description: Signed out }
  /auth/profile:
    get:
      summary: Current user's profile
      security: [{ BearerAuth: [] }]
      responses:
        "200": { description: Profile }
        "401": { description: Invalid or expired token }
  /payments/create-payment:
    post:
      summary: Create a payment order with the provider
      security: [{ BearerAuth: [] }]
      responses:
        "200": { description: Pending order created }
        "502": { description: Provider failure }
  /payments/verify-payment:
    post:
      summary: Verify a payment signature and complete the payment
      security: [{ BearerAuth: [] }]
      responses:
        "200": { description: Payment completed }
        "400": { description: Invalid signature }
        "404": { description: Unknown order }
  /payments/my-payments:
    get:
      summary: List the caller's payments
      security: [{ BearerAuth: [] }]
      responses:
        "200": { description: Payment list }
  /payments/webhook:
    post:
      summary: Provider webhook callback
      responses:
        "200": { description: Acknowledged }
        "400": { description: Invalid webhook signature }
  /health:
    get:
      summary: Liveness probe
      responses:
        "200": { description: OK }
`

func SwaggerUI(ctx *gin.Context) {
	ctx.Data(200, "text/html; charset=utf-8", []byte(swaggerUIHTML))
}

func OpenAPISpec(ctx *gin.Context) {
	ctx.Data(200, "application/yaml; charset=utf-8", []byte(openAPIYAML))
}
