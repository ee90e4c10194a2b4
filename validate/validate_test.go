package validate

import (
	"testing"

	"github.com/datarhei/settings/document"

	"github.com/stretchr/testify/require"
)

func validDocument() document.Document {
	return document.Document{
		document.General: document.Data{
			"hotelName":    "Hotel Sahara",
			"email":        "front@sahara.example",
			"phone":        "+213 555 123 456",
			"starRating":   4,
			"maxOccupancy": 6,
		},
		document.Forms: document.Data{
			"checkin": map[string]interface{}{
				"fields": []interface{}{
					map[string]interface{}{"name": "Full name", "key": "fullName", "type": "text", "required": true},
					map[string]interface{}{"name": "Arrival", "key": "arrival", "type": "date"},
				},
			},
		},
		document.Notifications: document.Data{
			"email": map[string]interface{}{"newBooking": true, "paymentReceived": true, "checkIn": false, "checkOut": false, "cancellation": true},
			"sms":   map[string]interface{}{"newBooking": false, "paymentReceived": false, "checkIn": false, "checkOut": false, "cancellation": false},
			"push":  map[string]interface{}{"newBooking": true, "paymentReceived": false, "checkIn": true, "checkOut": true, "cancellation": true},
		},
		document.Security: document.Data{
			"twoFactorAuth":  true,
			"sessionTimeout": 30,
			"loginAttempts":  5,
			"passwordPolicy": map[string]interface{}{"minLength": 8},
		},
		document.Appearance: document.Data{
			"primaryColor": "#1a2B3c",
			"theme":        "auto",
		},
		document.Language: document.Data{
			"defaultLanguage": "fr",
			"currency":        "DZD",
		},
	}
}

func TestNew(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	for _, section := range document.Sections() {
		schema, err := r.Schema(section)
		require.NoError(t, err, section)
		require.NotEmpty(t, schema, section)
	}

	_, err = r.Schema(document.Section("billing"))
	require.ErrorIs(t, err, ErrUnknownSection)
}

func TestValidSections(t *testing.T) {
	r := Must()

	for section, data := range validDocument() {
		result, err := r.Validate(section, data)
		require.NoError(t, err)
		require.True(t, result.Valid, "%s: %v", section, result.Errors)
		require.Empty(t, result.Errors)
		require.NoError(t, result.Err())
	}
}

func TestUnknownSection(t *testing.T) {
	r := Must()

	_, err := r.Validate(document.Section("billing"), document.Data{})
	require.ErrorIs(t, err, ErrUnknownSection)

	_, err = r.ValidateDocument(document.Document{"billing": document.Data{}})
	require.ErrorIs(t, err, ErrUnknownSection)
}

func TestGeneral(t *testing.T) {
	r := Must()

	result, err := r.Validate(document.General, document.Data{
		"hotelName":    " A ",
		"email":        "front desk@sahara",
		"phone":        "  0555  ",
		"starRating":   6,
		"maxOccupancy": 0,
	})
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, map[string]string{
		"hotelName":    "Hotel name must be at least 2 characters",
		"email":        "Please enter a valid email address",
		"phone":        "Please enter a valid phone number",
		"starRating":   "Star rating must be between 1 and 5",
		"maxOccupancy": "Max occupancy must be between 1 and 20",
	}, result.Errors)
}

func TestGeneralMissingFields(t *testing.T) {
	r := Must()

	result, err := r.Validate(document.General, document.Data{})
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, []string{"email", "hotelName", "phone"}, result.Paths())
}

func TestForms(t *testing.T) {
	r := Must()

	result, err := r.Validate(document.Forms, document.Data{
		"checkin": map[string]interface{}{
			"fields": []interface{}{
				map[string]interface{}{"name": "Full name", "key": "fullName", "type": "text"},
				map[string]interface{}{"name": " ", "key": "k", "type": "color"},
			},
		},
		"checkout": map[string]interface{}{
			"fields": "none",
		},
		"feedback": map[string]interface{}{},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"checkin.fields.1.name": "Field name is required",
		"checkin.fields.1.type": "Invalid field type",
		"checkout":              "Fields must be an array",
		"feedback":              "Fields must be an array",
	}, result.Errors)
}

func TestNotifications(t *testing.T) {
	r := Must()

	result, err := r.Validate(document.Notifications, document.Data{
		"email": map[string]interface{}{"newBooking": "yes", "paymentReceived": true, "checkIn": false, "checkOut": false, "cancellation": true},
		"sms":   "off",
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"email.newBooking": "newBooking must be a boolean value",
		"sms":              "sms settings must be an object",
		"push":             "push settings must be an object",
	}, result.Errors)
}

func TestSecurity(t *testing.T) {
	r := Must()

	result, err := r.Validate(document.Security, document.Data{
		"sessionTimeout": 1,
	})
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, "Session timeout must be between 5 and 480 minutes", result.Errors["sessionTimeout"])
	require.Equal(t, "Two-factor auth must be a boolean", result.Errors["twoFactorAuth"])
	require.Equal(t, "Login attempts must be between 3 and 10", result.Errors["loginAttempts"])

	result, err = r.Validate(document.Security, document.Data{
		"twoFactorAuth":  false,
		"sessionTimeout": 480,
		"loginAttempts":  3,
		"passwordPolicy": map[string]interface{}{"minLength": 4},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"passwordPolicy.minLength": "Password length must be between 6 and 50 characters",
	}, result.Errors)
}

func TestAppearanceAndLanguage(t *testing.T) {
	r := Must()

	result, err := r.Validate(document.Appearance, document.Data{
		"primaryColor": "red",
		"theme":        "neon",
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"primaryColor": "Primary color must be a valid hex color",
		"theme":        "Theme must be light, dark, or auto",
	}, result.Errors)

	result, err = r.Validate(document.Language, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"defaultLanguage": "Default language must be en, fr, or ar",
		"currency":        "Invalid currency code",
	}, result.Errors)
}

func TestValidateDocument(t *testing.T) {
	r := Must()

	doc := validDocument()

	result, err := r.ValidateDocument(doc)
	require.NoError(t, err)
	require.True(t, result.Valid)

	doc[document.General]["starRating"] = 6
	doc[document.Language]["currency"] = "BTC"

	result, err = r.ValidateDocument(doc)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"general.starRating": "Star rating must be between 1 and 5",
		"language.currency":  "Invalid currency code",
	}, result.Errors)
}

func TestValidateField(t *testing.T) {
	r := Must()
	doc := validDocument()

	require.Equal(t, "Star rating must be between 1 and 5", r.ValidateField(document.General, doc[document.General], "starRating", 9))
	require.Equal(t, "", r.ValidateField(document.General, doc[document.General], "starRating", 3))
	require.Equal(t, 4, doc[document.General]["starRating"])

	require.Equal(t, "Password length must be between 6 and 50 characters", r.ValidateField(document.Security, doc[document.Security], "passwordPolicy.minLength", 2))
	require.Equal(t, "Password length must be between 6 and 50 characters", r.ValidateField(document.Security, document.Data{}, "passwordPolicy.minLength", 51))

	require.Equal(t, "Invalid field type", r.ValidateField(document.Forms, doc[document.Forms], "checkin.fields.1.type", "color"))
	require.Equal(t, "", r.ValidateField(document.Forms, doc[document.Forms], "checkin.fields.1.type", "select"))
}

func TestError(t *testing.T) {
	r := Must()

	result, err := r.Validate(document.Appearance, document.Data{"primaryColor": "#000000", "theme": "sepia"})
	require.NoError(t, err)

	err = result.Err()
	require.Error(t, err)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, result, verr.Result)
	require.EqualError(t, err, "validation failed: theme: Theme must be light, dark, or auto")
}
