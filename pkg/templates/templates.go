package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"sort"

	"encore.app/pkg/errs"
)

// EmailTemplate يمثل قالب بريد إلكتروني متعدد اللغات
type EmailTemplate struct {
	ID          string
	Subject     map[string]string // multi-language subjects (ar, en, ur)
	HTMLBody    map[string]string // multi-language HTML templates
	TextBody    map[string]string // multi-language text templates
	Description string
}

// TemplateData يمثل البيانات المستخدمة في القوالب
type TemplateData map[string]interface{}

const baseStyle = `
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; background: #faf7f2; }
        .header { background: #8a6d3b; color: white; padding: 20px; text-align: center; border-radius: 10px 10px 0 0; }
        .content { background: white; padding: 30px; border-radius: 0 0 10px 10px; }
        .info { background: #f6f1e7; padding: 15px; border-radius: 5px; margin: 20px 0; }
        .button { display: inline-block; padding: 12px 30px; background: #8a6d3b; color: white; text-decoration: none; border-radius: 5px; margin-top: 20px; }
        .footer { text-align: center; margin-top: 30px; font-size: 12px; color: #666; }`

func htmlDoc(dir, lang, header, body string) string {
	dirAttr := ""
	if dir == "rtl" {
		dirAttr = ` dir="rtl"`
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html%s lang="%s">
<head>
    <meta charset="UTF-8">
    <style>%s</style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>%s</h1></div>
        <div class="content">%s</div>
    </div>
</body>
</html>`, dirAttr, lang, baseStyle, header, body)
}

var builtin = map[string]*EmailTemplate{
	"welcome": {
		ID:          "welcome",
		Description: "رسالة الترحيب بعد التسجيل",
		Subject: map[string]string{
			"ar": "مرحباً بك في مجوهرات نور",
			"en": "Welcome to Noor Jewels",
			"ur": "نور جیولز میں خوش آمدید",
		},
		HTMLBody: map[string]string{
			"ar": htmlDoc("rtl", "ar", "مرحباً بك في مجوهرات نور", `
            <h2>أهلاً {{.Name}}،</h2>
            <p>نحن سعداء بانضمامك إلى متجر مجوهرات نور. حسابك جاهز الآن للاستخدام.</p>
            <a href="{{.ActivationURL}}" class="button">تفعيل الحساب</a>
            <div class="footer"><p>إذا لم تقم بإنشاء هذا الحساب، يرجى تجاهل هذه الرسالة.</p></div>`),
			"en": htmlDoc("ltr", "en", "Welcome to Noor Jewels", `
            <h2>Hello {{.Name}},</h2>
            <p>We're delighted to have you at Noor Jewels. Your account is now ready to use.</p>
            <a href="{{.ActivationURL}}" class="button">Activate Account</a>
            <div class="footer"><p>If you didn't create this account, please ignore this message.</p></div>`),
			"ur": htmlDoc("rtl", "ur", "نور جیولز میں خوش آمدید", `
            <h2>سلام {{.Name}}،</h2>
            <p>نور جیولز میں شمولیت پر خوش آمدید۔ آپ کا اکاؤنٹ اب استعمال کے لیے تیار ہے۔</p>
            <a href="{{.ActivationURL}}" class="button">اکاؤنٹ فعال کریں</a>
            <div class="footer"><p>اگر آپ نے یہ اکاؤنٹ نہیں بنایا تو براہ کرم اس پیغام کو نظر انداز کریں۔</p></div>`),
		},
		TextBody: map[string]string{
			"ar": `مرحباً {{.Name}}،

نحن سعداء بانضمامك إلى متجر مجوهرات نور. حسابك جاهز الآن للاستخدام.

لتفعيل حسابك، يرجى زيارة: {{.ActivationURL}}

إذا لم تقم بإنشاء هذا الحساب، يرجى تجاهل هذه الرسالة.

مع تحيات فريق مجوهرات نور`,
			"en": `Hello {{.Name}},

We're delighted to have you at Noor Jewels. Your account is now ready to use.

To activate your account, please visit: {{.ActivationURL}}

If you didn't create this account, please ignore this message.

Best regards,
The Noor Jewels Team`,
			"ur": `سلام {{.Name}}،

نور جیولز میں شمولیت پر خوش آمدید۔ آپ کا اکاؤنٹ اب استعمال کے لیے تیار ہے۔

اکاؤنٹ فعال کرنے کے لیے: {{.ActivationURL}}

اگر آپ نے یہ اکاؤنٹ نہیں بنایا تو براہ کرم اس پیغام کو نظر انداز کریں۔

نور جیولز ٹیم`,
		},
	},
	"order_confirmation": {
		ID:          "order_confirmation",
		Description: "تأكيد استلام الطلب",
		Subject: map[string]string{
			"ar": "تم استلام طلبك #{{.OrderNumber}} - مجوهرات نور",
			"en": "Your Order #{{.OrderNumber}} Has Been Received - Noor Jewels",
			"ur": "آپ کا آرڈر #{{.OrderNumber}} موصول ہو گیا - نور جیولز",
		},
		HTMLBody: map[string]string{
			"ar": htmlDoc("rtl", "ar", "تم استلام طلبك!", `
            <h2>مرحباً {{.Name}}،</h2>
            <p>شكراً لتسوقك من مجوهرات نور. تم استلام طلبك وسنبدأ بتجهيزه.</p>
            <div class="info">
                <h3>تفاصيل الطلب:</h3>
                <p><strong>رقم الطلب:</strong> #{{.OrderNumber}}</p>
                <p><strong>الإجمالي الفرعي:</strong> {{.Subtotal}}</p>
                <p><strong>الضريبة:</strong> {{.VAT}}</p>
                <p><strong>الشحن:</strong> {{.Shipping}}</p>
                <p><strong>الإجمالي:</strong> {{.GrandTotal}}</p>
            </div>
            <p>سنرسل لك إشعاراً عند شحن الطلب.</p>
            <a href="{{.OrderURL}}" class="button">عرض الطلب</a>`),
			"en": htmlDoc("ltr", "en", "Your Order Has Been Received!", `
            <h2>Hello {{.Name}},</h2>
            <p>Thank you for shopping at Noor Jewels. We've received your order and will start preparing it.</p>
            <div class="info">
                <h3>Order Details:</h3>
                <p><strong>Order Number:</strong> #{{.OrderNumber}}</p>
                <p><strong>Subtotal:</strong> {{.Subtotal}}</p>
                <p><strong>VAT:</strong> {{.VAT}}</p>
                <p><strong>Shipping:</strong> {{.Shipping}}</p>
                <p><strong>Grand Total:</strong> {{.GrandTotal}}</p>
            </div>
            <p>We'll notify you when your order ships.</p>
            <a href="{{.OrderURL}}" class="button">View Order</a>`),
			"ur": htmlDoc("rtl", "ur", "آپ کا آرڈر موصول ہو گیا!", `
            <h2>سلام {{.Name}}،</h2>
            <p>نور جیولز سے خریداری کا شکریہ۔ آپ کا آرڈر موصول ہو گیا ہے اور ہم اسے تیار کرنا شروع کر رہے ہیں۔</p>
            <div class="info">
                <h3>آرڈر کی تفصیلات:</h3>
                <p><strong>آرڈر نمبر:</strong> #{{.OrderNumber}}</p>
                <p><strong>ذیلی کل:</strong> {{.Subtotal}}</p>
                <p><strong>ٹیکس:</strong> {{.VAT}}</p>
                <p><strong>ترسیل:</strong> {{.Shipping}}</p>
                <p><strong>کل رقم:</strong> {{.GrandTotal}}</p>
            </div>
            <p>آرڈر روانہ ہونے پر ہم آپ کو اطلاع دیں گے۔</p>
            <a href="{{.OrderURL}}" class="button">آرڈر دیکھیں</a>`),
		},
		TextBody: map[string]string{
			"ar": `مرحباً {{.Name}}،

شكراً لتسوقك من مجوهرات نور. تم استلام طلبك وسنبدأ بتجهيزه.

تفاصيل الطلب:
- رقم الطلب: #{{.OrderNumber}}
- الإجمالي الفرعي: {{.Subtotal}}
- الضريبة: {{.VAT}}
- الشحن: {{.Shipping}}
- الإجمالي: {{.GrandTotal}}

لعرض الطلب: {{.OrderURL}}

مع تحيات فريق مجوهرات نور`,
			"en": `Hello {{.Name}},

Thank you for shopping at Noor Jewels. We've received your order and will start preparing it.

Order Details:
- Order Number: #{{.OrderNumber}}
- Subtotal: {{.Subtotal}}
- VAT: {{.VAT}}
- Shipping: {{.Shipping}}
- Grand Total: {{.GrandTotal}}

View Order: {{.OrderURL}}

Best regards,
The Noor Jewels Team`,
			"ur": `سلام {{.Name}}،

نور جیولز سے خریداری کا شکریہ۔ آپ کا آرڈر موصول ہو گیا ہے۔

آرڈر کی تفصیلات:
- آرڈر نمبر: #{{.OrderNumber}}
- ذیلی کل: {{.Subtotal}}
- ٹیکس: {{.VAT}}
- ترسیل: {{.Shipping}}
- کل رقم: {{.GrandTotal}}

آرڈر دیکھیں: {{.OrderURL}}

نور جیولز ٹیم`,
		},
	},
	"order_status_update": {
		ID:          "order_status_update",
		Description: "تحديث حالة الطلب",
		Subject: map[string]string{
			"ar": "تحديث حالة طلبك #{{.OrderNumber}} - مجوهرات نور",
			"en": "Order #{{.OrderNumber}} Status Update - Noor Jewels",
			"ur": "آرڈر #{{.OrderNumber}} کی صورتحال - نور جیولز",
		},
		HTMLBody: map[string]string{
			"ar": htmlDoc("rtl", "ar", "تحديث حالة الطلب", `
            <h2>مرحباً {{.Name}}،</h2>
            <p>تم تحديث حالة طلبك <strong>#{{.OrderNumber}}</strong> إلى: <strong>{{.Status}}</strong>.</p>
            <a href="{{.OrderURL}}" class="button">عرض الطلب</a>`),
			"en": htmlDoc("ltr", "en", "Order Status Update", `
            <h2>Hello {{.Name}},</h2>
            <p>Your order <strong>#{{.OrderNumber}}</strong> status is now: <strong>{{.Status}}</strong>.</p>
            <a href="{{.OrderURL}}" class="button">View Order</a>`),
			"ur": htmlDoc("rtl", "ur", "آرڈر کی صورتحال", `
            <h2>سلام {{.Name}}،</h2>
            <p>آپ کے آرڈر <strong>#{{.OrderNumber}}</strong> کی نئی صورتحال: <strong>{{.Status}}</strong>۔</p>
            <a href="{{.OrderURL}}" class="button">آرڈر دیکھیں</a>`),
		},
		TextBody: map[string]string{
			"ar": `مرحباً {{.Name}}،

تم تحديث حالة طلبك #{{.OrderNumber}} إلى: {{.Status}}.

لعرض الطلب: {{.OrderURL}}

مع تحيات فريق مجوهرات نور`,
			"en": `Hello {{.Name}},

Your order #{{.OrderNumber}} status is now: {{.Status}}.

View Order: {{.OrderURL}}

Best regards,
The Noor Jewels Team`,
			"ur": `سلام {{.Name}}،

آپ کے آرڈر #{{.OrderNumber}} کی نئی صورتحال: {{.Status}}۔

آرڈر دیکھیں: {{.OrderURL}}

نور جیولز ٹیم`,
		},
	},
	"password_reset": {
		ID:          "password_reset",
		Description: "إعادة تعيين كلمة المرور",
		Subject: map[string]string{
			"ar": "إعادة تعيين كلمة المرور - مجوهرات نور",
			"en": "Password Reset - Noor Jewels",
			"ur": "پاس ورڈ کی بحالی - نور جیولز",
		},
		HTMLBody: map[string]string{
			"ar": htmlDoc("rtl", "ar", "إعادة تعيين كلمة المرور", `
            <h2>مرحباً {{.Name}}،</h2>
            <p>تلقينا طلباً لإعادة تعيين كلمة المرور الخاصة بحسابك.</p>
            <a href="{{.ResetURL}}" class="button">إعادة تعيين كلمة المرور</a>
            <div class="info"><p><strong>تنبيه:</strong> هذا الرابط صالح لمدة ساعة واحدة فقط.</p></div>`),
			"en": htmlDoc("ltr", "en", "Password Reset", `
            <h2>Hello {{.Name}},</h2>
            <p>We received a request to reset your account password.</p>
            <a href="{{.ResetURL}}" class="button">Reset Password</a>
            <div class="info"><p><strong>Note:</strong> This link is valid for 1 hour only.</p></div>`),
			"ur": htmlDoc("rtl", "ur", "پاس ورڈ کی بحالی", `
            <h2>سلام {{.Name}}،</h2>
            <p>آپ کے اکاؤنٹ کا پاس ورڈ دوبارہ مقرر کرنے کی درخواست موصول ہوئی ہے۔</p>
            <a href="{{.ResetURL}}" class="button">پاس ورڈ بحال کریں</a>
            <div class="info"><p><strong>نوٹ:</strong> یہ لنک صرف ایک گھنٹے کے لیے کارآمد ہے۔</p></div>`),
		},
		TextBody: map[string]string{
			"ar": `مرحباً {{.Name}}،

تلقينا طلباً لإعادة تعيين كلمة المرور الخاصة بحسابك.

لإعادة التعيين: {{.ResetURL}}

تنبيه: هذا الرابط صالح لمدة ساعة واحدة فقط.

مع تحيات فريق مجوهرات نور`,
			"en": `Hello {{.Name}},

We received a request to reset your account password.

To reset: {{.ResetURL}}

Note: This link is valid for 1 hour only.

Best regards,
The Noor Jewels Team`,
			"ur": `سلام {{.Name}}،

آپ کے اکاؤنٹ کا پاس ورڈ دوبارہ مقرر کرنے کی درخواست موصول ہوئی ہے۔

بحالی کے لیے: {{.ResetURL}}

نوٹ: یہ لنک صرف ایک گھنٹے کے لیے کارآمد ہے۔

نور جیولز ٹیم`,
		},
	},
	"contact_reply": {
		ID:          "contact_reply",
		Description: "الرد على رسالة تواصل",
		Subject: map[string]string{
			"ar": "رد على رسالتك - مجوهرات نور",
			"en": "Reply to Your Message - Noor Jewels",
			"ur": "آپ کے پیغام کا جواب - نور جیولز",
		},
		HTMLBody: map[string]string{
			"ar": htmlDoc("rtl", "ar", "رد على رسالتك", `
            <h2>مرحباً {{.Name}}،</h2>
            <p>شكراً لتواصلك معنا. هذا ردنا على استفسارك:</p>
            <div class="info"><p>{{.Reply}}</p></div>`),
			"en": htmlDoc("ltr", "en", "Reply to Your Message", `
            <h2>Hello {{.Name}},</h2>
            <p>Thank you for contacting us. Here is our reply to your inquiry:</p>
            <div class="info"><p>{{.Reply}}</p></div>`),
			"ur": htmlDoc("rtl", "ur", "آپ کے پیغام کا جواب", `
            <h2>سلام {{.Name}}،</h2>
            <p>ہم سے رابطے کا شکریہ۔ آپ کے استفسار کا جواب:</p>
            <div class="info"><p>{{.Reply}}</p></div>`),
		},
		TextBody: map[string]string{
			"ar": `مرحباً {{.Name}}،

شكراً لتواصلك معنا. هذا ردنا على استفسارك:

{{.Reply}}

مع تحيات فريق مجوهرات نور`,
			"en": `Hello {{.Name}},

Thank you for contacting us. Here is our reply to your inquiry:

{{.Reply}}

Best regards,
The Noor Jewels Team`,
			"ur": `سلام {{.Name}}،

ہم سے رابطے کا شکریہ۔ آپ کے استفسار کا جواب:

{{.Reply}}

نور جیولز ٹیم`,
		},
	},
	"newsletter_welcome": {
		ID:          "newsletter_welcome",
		Description: "تأكيد الاشتراك في النشرة البريدية",
		Subject: map[string]string{
			"ar": "تم اشتراكك في نشرة مجوهرات نور",
			"en": "You're Subscribed to the Noor Jewels Newsletter",
			"ur": "نور جیولز نیوز لیٹر میں سبسکرپشن مکمل",
		},
		HTMLBody: map[string]string{
			"ar": htmlDoc("rtl", "ar", "أهلاً بك في نشرتنا البريدية", `
            <p>شكراً لاشتراكك. ستصلك أحدث التشكيلات والعروض أولاً بأول.</p>
            <div class="footer"><p>لإلغاء الاشتراك: <a href="{{.UnsubscribeURL}}">اضغط هنا</a></p></div>`),
			"en": htmlDoc("ltr", "en", "Welcome to Our Newsletter", `
            <p>Thank you for subscribing. You'll be the first to hear about new collections and offers.</p>
            <div class="footer"><p>To unsubscribe: <a href="{{.UnsubscribeURL}}">click here</a></p></div>`),
			"ur": htmlDoc("rtl", "ur", "ہمارے نیوز لیٹر میں خوش آمدید", `
            <p>سبسکرائب کرنے کا شکریہ۔ نئی کلیکشنز اور آفرز کی اطلاع سب سے پہلے آپ کو ملے گی۔</p>
            <div class="footer"><p>ان سبسکرائب کے لیے: <a href="{{.UnsubscribeURL}}">یہاں کلک کریں</a></p></div>`),
		},
		TextBody: map[string]string{
			"ar": `شكراً لاشتراكك في نشرة مجوهرات نور.

ستصلك أحدث التشكيلات والعروض أولاً بأول.

لإلغاء الاشتراك: {{.UnsubscribeURL}}`,
			"en": `Thank you for subscribing to the Noor Jewels newsletter.

You'll be the first to hear about new collections and offers.

To unsubscribe: {{.UnsubscribeURL}}`,
			"ur": `نور جیولز نیوز لیٹر سبسکرائب کرنے کا شکریہ۔

نئی کلیکشنز اور آفرز کی اطلاع سب سے پہلے آپ کو ملے گی۔

ان سبسکرائب کے لیے: {{.UnsubscribeURL}}`,
		},
	},
}

// GetTemplate يجلب قالب البريد الإلكتروني المدمج
func GetTemplate(templateID string) (*EmailTemplate, error) {
	tmpl, exists := builtin[templateID]
	if !exists {
		return nil, &errs.Error{Code: errs.NtfTemplateNotFound, Message: "القالب غير موجود"}
	}
	return tmpl, nil
}

// RenderTemplate يقوم بتحويل القالب إلى HTML/Text باستخدام البيانات المعطاة
func RenderTemplate(templateID string, lang string, data TemplateData) (subject, html, text string, err error) {
	tmpl, err := GetTemplate(templateID)
	if err != nil {
		return "", "", "", err
	}
	return Render(tmpl, lang, data)
}

// Render renders an EmailTemplate (built-in or admin-edited) for a language.
// Missing languages fall back to Arabic, the storefront's primary locale.
func Render(tmpl *EmailTemplate, lang string, data TemplateData) (subject, html, text string, err error) {
	if lang == "" {
		lang = "ar"
	}

	subject = pick(tmpl.Subject, lang)
	if s, err := renderString("subject", subject, data); err == nil {
		subject = s
	}

	html, err = renderString("html", pick(tmpl.HTMLBody, lang), data)
	if err != nil {
		return "", "", "", &errs.Error{Code: errs.Internal, Message: "فشل تنفيذ قالب HTML"}
	}

	text, err = renderString("text", pick(tmpl.TextBody, lang), data)
	if err != nil {
		return "", "", "", &errs.Error{Code: errs.Internal, Message: "فشل تنفيذ قالب النص"}
	}

	return subject, html, text, nil
}

func pick(m map[string]string, lang string) string {
	if v := m[lang]; v != "" {
		return v
	}
	return m["ar"]
}

func renderString(name, body string, data TemplateData) (string, error) {
	t, err := template.New(name).Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var placeholderRe = regexp.MustCompile(`\{\{\s*\.([A-Za-z][A-Za-z0-9]*)\s*\}\}`)

// Placeholders returns the sorted set of {{.Name}} placeholders in a template body.
func Placeholders(body string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	sort.Strings(out)
	return out
}

// ValidateBody checks that an admin-edited template body parses and uses only
// placeholders the built-in template of the same id knows about.
func ValidateBody(templateID, body string) error {
	if _, err := template.New("check").Parse(body); err != nil {
		return &errs.Error{Code: errs.NtfInvalidTemplate, Message: "تعذر تحليل القالب"}
	}
	base, err := GetTemplate(templateID)
	if err != nil {
		return err
	}
	allowed := map[string]bool{}
	for _, lang := range []string{"ar", "en", "ur"} {
		for _, ph := range Placeholders(base.Subject[lang]) {
			allowed[ph] = true
		}
		for _, ph := range Placeholders(base.HTMLBody[lang]) {
			allowed[ph] = true
		}
		for _, ph := range Placeholders(base.TextBody[lang]) {
			allowed[ph] = true
		}
	}
	for _, ph := range Placeholders(body) {
		if !allowed[ph] {
			return &errs.Error{Code: errs.NtfInvalidTemplate, Message: "متغير غير معروف في القالب: " + ph}
		}
	}
	return nil
}

// GetAvailableTemplates يرجع قائمة بجميع القوالب المتاحة
func GetAvailableTemplates() []string {
	var ids []string
	for id := range builtin {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetTemplateInfo يرجع معلومات عن قالب معين
func GetTemplateInfo(templateID string) (map[string]interface{}, error) {
	tmpl, err := GetTemplate(templateID)
	if err != nil {
		return nil, err
	}

	languages := []string{}
	for lang := range tmpl.Subject {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	return map[string]interface{}{
		"id":          tmpl.ID,
		"description": tmpl.Description,
		"languages":   languages,
	}, nil
}
