package ui

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("02.01.2006")
	},
	"statusLabel": func(status string) string {
		switch status {
		case "submitted":
			return "На проверке"
		case "checked":
			return "Проверено"
		case "published":
			return "Опубликован"
		case "scheduled":
			return "Запланирован"
		case "draft":
			return "Черновик"
		default:
			return status
		}
	},
}

// renderTemplate renders a named page inside the layout.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	layout, ok := templates["layout"]
	if !ok {
		return fmt.Errorf("layout template not found")
	}

	tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(layout)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	if _, err := tmpl.New("content").Parse(content); err != nil {
		return fmt.Errorf("parse content: %w", err)
	}
	return tmpl.Execute(w, data)
}

// templates holds all template content.
var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="ru">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: system-ui, sans-serif; margin: 0; background: #faf8f5; color: #333; }
        header { background: #2c5f4f; color: #fff; padding: 1rem 2rem; display: flex; justify-content: space-between; }
        header a { color: #fff; text-decoration: none; }
        main { max-width: 56rem; margin: 2rem auto; padding: 0 1rem; }
        .card { background: #fff; border-radius: 8px; padding: 1.5rem; margin-bottom: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
        .error { background: #fdecea; color: #b3261e; padding: .75rem 1rem; border-radius: 6px; margin-bottom: 1rem; }
        label { display: block; margin-bottom: .25rem; }
        input { width: 100%; padding: .5rem; margin-bottom: 1rem; border: 1px solid #ccc; border-radius: 4px; box-sizing: border-box; }
        button { background: #2c5f4f; color: #fff; border: 0; padding: .6rem 1.5rem; border-radius: 4px; cursor: pointer; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: .5rem; border-bottom: 1px solid #eee; }
        .stats { display: flex; gap: 1rem; }
        .stats .card { flex: 1; text-align: center; }
        .stats .num { font-size: 2rem; font-weight: bold; }
    </style>
</head>
<body>
    <header>
        <div><a href="/">Арабский с нуля</a></div>
        <nav>{{if .Name}}{{.Name}} &middot; <a href="/logout">Выйти</a>{{end}}</nav>
    </header>
    <main>{{template "content" .}}</main>
</body>
</html>`,

	"login": `<div class="card" style="max-width: 24rem; margin: 4rem auto;">
    <h1>Вход</h1>
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    <form method="post" action="/login">
        <label for="email">Email</label>
        <input type="email" id="email" name="email" required>
        <label for="password">Пароль</label>
        <input type="password" id="password" name="password" required>
        <button type="submit">Войти</button>
    </form>
</div>`,

	"dashboard": `<h1>Личный кабинет</h1>
<div class="card">
    <h2>Уроки</h2>
    {{if .Lessons}}
    <table>
        <tr><th>Урок</th><th>Дата</th><th>Статус</th></tr>
        {{range .Lessons}}
        <tr><td>{{.Title}}</td><td>{{formatDate .PublishDate}}</td><td>{{statusLabel (printf "%s" .Status)}}</td></tr>
        {{end}}
    </table>
    {{else}}<p>Уроков пока нет.</p>{{end}}
</div>
<div class="card">
    <h2>Мои домашние задания</h2>
    {{if .Homework}}
    <table>
        <tr><th>Урок</th><th>Сдано</th><th>Статус</th><th>Отзыв</th></tr>
        {{range .Homework}}
        <tr>
            <td>{{.LessonID}}</td>
            <td>{{formatDate .SubmittedDate}}</td>
            <td>{{statusLabel (printf "%s" .Status)}}</td>
            <td>{{if .Feedback}}{{.Feedback}}{{else}}&mdash;{{end}}</td>
        </tr>
        {{end}}
    </table>
    {{else}}<p>Вы ещё не сдавали домашние задания.</p>{{end}}
</div>`,

	"admin": `<h1>Административная панель</h1>
<div class="stats">
    <div class="card"><div class="num">{{.StudentCount}}</div>Учениц</div>
    <div class="card"><div class="num">{{.LessonCount}}</div>Уроков</div>
    <div class="card"><div class="num">{{.PendingHomework}}</div>На проверке</div>
</div>`,
}
