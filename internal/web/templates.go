package web

const pageTemplates = `
{{define "header"}}<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>班级圈</title>
</head>
<body>
<nav>
{{if .User}}<span>{{.User.RealName}} ({{.User.Username}})</span>
<a href="{{.Paths.Landing}}">moments</a>
{{if .User.IsTeacher}}<a href="/create">new post</a>{{end}}
{{if .User.IsAdmin}}<a href="/admin">admin</a>{{end}}
<form method="post" action="/logout"><button type="submit">logout</button></form>
{{else}}<a href="{{.Paths.Login}}">login</a> <a href="{{.Paths.Register}}">register</a>{{end}}
</nav>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{end}}

{{define "footer"}}</body>
</html>
{{end}}

{{define "login"}}{{template "header" .}}
<h1>Login</h1>
<form method="post" action="{{.Paths.Login}}">
<input name="username" placeholder="username">
<input name="password" type="password" placeholder="password">
<button type="submit">login</button>
</form>
{{template "footer" .}}{{end}}

{{define "register"}}{{template "header" .}}
<h1>Register</h1>
<form method="post" action="{{.Paths.Register}}">
<input name="username" placeholder="username">
<input name="password" type="password" placeholder="password">
<input name="real_name" placeholder="real name">
<input name="grade" type="number" min="1" max="5" placeholder="grade">
<input name="class_name" type="number" min="1" max="6" placeholder="class">
<input name="register_code" placeholder="teacher register code">
<button type="submit">register</button>
</form>
{{template "footer" .}}{{end}}

{{define "moments"}}{{template "header" .}}
<h1>Moments</h1>
{{range .Posts}}
<article>
<header>{{.RealName}} · <time datetime="{{.CreatedAt}}">{{ago .CreatedAt}}</time></header>
<p>{{.Content}}</p>
{{range .Images}}<img src="/uploads/{{.}}" alt="">{{end}}
<form method="post" action="/posts/{{.ID}}/like"><button type="submit">{{if .IsLiked}}unlike{{else}}like{{end}} ({{.LikeCount}})</button></form>
{{if not .DisableComments}}
<ul>
{{range .Comments}}<li>{{.RealName}}: {{.Content}}
<ul>{{range .Replies}}<li>{{.RealName}}{{with .RepliedToUsername}} @{{.}}{{end}}: {{.Content}}</li>{{end}}</ul>
</li>{{end}}
</ul>
<form method="post" action="/posts/{{.ID}}/comments">
<input name="content" placeholder="comment">
<button type="submit">send</button>
</form>
{{end}}
</article>
{{else}}
<p>No moments yet.</p>
{{end}}
{{template "footer" .}}{{end}}

{{define "create"}}{{template "header" .}}
<h1>New post</h1>
<form method="post" action="/create" enctype="multipart/form-data">
<textarea name="content"></textarea>
<input name="images" type="file" accept="image/*" multiple>
<label><input name="disable_comments" type="checkbox"> disable comments</label>
<button type="submit">publish</button>
</form>
{{template "footer" .}}{{end}}

{{define "first-login"}}{{template "header" .}}
<h1>Welcome</h1>
<p>Please choose a new password and your name before you continue.</p>
<form method="post" action="{{.Paths.Onboarding}}">
<input name="real_name" placeholder="name">
<input name="password" type="password" placeholder="new password">
<button type="submit">save</button>
</form>
{{template "footer" .}}{{end}}

{{define "admin"}}{{template "header" .}}
<h1>Administration</h1>
<a href="/admin/users">users</a>
{{with .Section}}<h2>Users</h2>{{end}}
{{template "footer" .}}{{end}}

{{define "not-found"}}{{template "header" .}}
<h1>Page not found</h1>
{{template "footer" .}}{{end}}

{{define "error"}}{{template "header" .}}
{{template "footer" .}}{{end}}
`
